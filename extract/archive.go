package extract

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/corpus"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// errBudget reports that the decompressed byte budget is spent.
var errBudget = errors.New("archive size limit exceeded")

// budget tracks bytes decompressed across one extraction, including
// nested archives.
type budget struct {
	remaining int64
}

// read reads r fully, charging the bytes against the budget.
func (b *budget) read(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, b.remaining+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > b.remaining {
		b.remaining = 0
		return nil, errBudget
	}
	b.remaining -= int64(len(data))
	return data, nil
}

// member is one regular file inside an archive.
type member struct {
	name string
	open func() (io.ReadCloser, error)
}

func (r *Registry) parseArchive(data []byte, name string, depth int, b *budget) (*corpus.Extraction, error) {
	if depth >= r.maxDepth {
		r.logger.Debug("archive depth limit", "name", name, "depth", depth)
		return opaque(data, name, assetSource(name, depth)), nil
	}

	switch {
	case bytes.HasPrefix(data, []byte("PK")):
		return r.parseZip(data, name, depth, b)
	case bytes.HasPrefix(data, []byte{0x28, 0xb5, 0x2f, 0xfd}):
		dec, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		return r.parseTar(dec, name, depth, b)
	case bytes.HasPrefix(data, []byte{0x1f, 0x8b}):
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		return r.parseTar(zr, name, depth, b)
	}
	return r.parseTar(bytes.NewReader(data), name, depth, b)
}

// parseGzip unpacks tarballs; a single compressed stream is surfaced as
// one opaque file.
func (r *Registry) parseGzip(data []byte, name string, depth int, b *budget) (*corpus.Extraction, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return opaque(data, name, assetSource(name, depth)), nil
	}
	defer zr.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(zr, head)
	if !isTar(head[:n]) {
		return opaque(data, name, assetSource(name, depth)), nil
	}
	return r.parseArchive(data, name, depth, b)
}

func (r *Registry) parseZip(data []byte, name string, depth int, b *budget) (*corpus.Extraction, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("zip: %w", err)
	}
	var members []member
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		members = append(members, member{name: f.Name, open: f.Open})
	}
	return r.collect(members, name, depth, b), nil
}

func (r *Registry) parseTar(rd io.Reader, name string, depth int, b *budget) (*corpus.Extraction, error) {
	tr := tar.NewReader(rd)
	ext := &corpus.Extraction{}
	var parts []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if len(parts) == 0 && ext.Empty() {
				return nil, fmt.Errorf("tar: %w", err)
			}
			r.logger.Warn("tar truncated", "err", err)
			break
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := b.read(tr)
		if err != nil {
			r.logger.Warn("archive member skipped", "name", hdr.Name, "err", err)
			break
		}
		parts = r.appendMember(ext, parts, name, hdr.Name, data, depth, b)
	}
	ext.Text = strings.Join(parts, "\n")
	return ext, nil
}

// collect extracts each member in order until the budget runs out.
func (r *Registry) collect(members []member, name string, depth int, b *budget) *corpus.Extraction {
	ext := &corpus.Extraction{}
	var parts []string
	for _, m := range members {
		data, err := readMember(m, b)
		if err != nil {
			r.logger.Warn("archive member skipped", "name", m.name, "err", err)
			if errors.Is(err, errBudget) {
				break
			}
			continue
		}
		parts = r.appendMember(ext, parts, name, m.name, data, depth, b)
	}
	ext.Text = strings.Join(parts, "\n")
	return ext
}

func readMember(m member, b *budget) ([]byte, error) {
	rc, err := m.open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return b.read(rc)
}

// appendMember extracts one member of archive and merges its assets into
// ext. Its text is added under a "# name" heading.
func (r *Registry) appendMember(ext *corpus.Extraction, parts []string, archive, name string, data []byte, depth int, b *budget) []string {
	child := r.extract(data, MemberName(archive, name), depth+1, b)
	ext.Merge(child)
	if child.Text == "" {
		return parts
	}
	return append(parts, "\n# "+name+"\n"+child.Text)
}

// memberSep joins an archive name and a member path.
const memberSep = "!/"

// MemberName returns the name a member is extracted under. It keeps the
// archive's name so assets carved from members of different archives
// get distinct IDs.
func MemberName(archive, member string) string {
	if archive == "" {
		archive = "archive"
	}
	return archive + memberSep + strings.TrimPrefix(member, "/")
}
