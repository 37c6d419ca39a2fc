package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/corpus"
)

// Exporter writes documents under a directory with atomic replace
// semantics. Files are written to baseDir/name.tmp and moved to
// baseDir/name on Commit.
type Exporter struct {
	baseDir string
	name    string
}

// NewExporter creates a new Exporter.
func NewExporter(baseDir, name string) *Exporter {
	return &Exporter{
		baseDir: baseDir,
		name:    name,
	}
}

func (e *Exporter) tempDir() string {
	return filepath.Join(e.baseDir, e.name+".tmp")
}

// Dir returns the final export directory.
func (e *Exporter) Dir() string {
	return filepath.Join(e.baseDir, e.name)
}

// Save writes doc as markdown. Its images and files are written next to
// it in a directory named after the document with an ".assets" suffix.
func (e *Exporter) Save(ctx context.Context, doc *corpus.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	relPath, err := DocumentPath(doc.ID)
	if err != nil {
		return err
	}
	fullPath := filepath.Join(e.tempDir(), relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}

	content, err := FormatDocument(doc)
	if err != nil {
		return fmt.Errorf("formatting %s: %w", doc.ID, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		return err
	}

	assetDir := strings.TrimSuffix(fullPath, ".md") + ".assets"
	if err := writeAssets(filepath.Join(assetDir, "images"), doc.Images); err != nil {
		return err
	}
	return writeAssets(filepath.Join(assetDir, "files"), doc.Files)
}

func writeAssets(dir string, assets []corpus.Asset) error {
	if len(assets) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for i, a := range assets {
		name := AssetName(a, i)
		if err := os.WriteFile(filepath.Join(dir, name), a.Content, 0644); err != nil {
			return err
		}
	}
	return nil
}

// AssetName returns the file name for the i-th asset of a document. The
// position prefix keeps names unique within the document.
func AssetName(a corpus.Asset, i int) string {
	name := corpus.FileName(a.Filename)
	if name == "" {
		name = corpus.FileName(a.Source)
	}
	if name == "" || name == "." || name == ".." {
		name = "asset"
	}
	return fmt.Sprintf("%03d-%s", i, name)
}

// Commit replaces the final directory with the written files.
func (e *Exporter) Commit() error {
	if err := os.RemoveAll(e.Dir()); err != nil {
		return err
	}
	return os.Rename(e.tempDir(), e.Dir())
}

// Abort discards the written files.
func (e *Exporter) Abort() error {
	return os.RemoveAll(e.tempDir())
}
