// Package fs exports documents to a directory of markdown files.
package fs

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/fwojciec/corpus"
	"gopkg.in/yaml.v3"
)

// DocumentPath converts a document ID to a relative file path.
//
//	docs://https://example.com/guide/intro      → example.com/guide/intro.md
//	docs://https://example.com/guide/           → example.com/guide/index.md
//	docs://https://example.com/a.pdf#chunk-2    → example.com/a.pdf.chunk-2.md
//	uploaded://img-0f3a-photo.jpg               → uploaded/img-0f3a-photo.jpg.md
func DocumentPath(id string) (string, error) {
	base, hasFragment := corpus.TrimFragment(id)
	var suffix string
	if hasFragment {
		suffix = "." + id[len(base)+1:]
	}

	var rel string
	switch {
	case strings.HasPrefix(base, corpus.CrawledPrefix):
		u, err := url.Parse(strings.TrimPrefix(base, corpus.CrawledPrefix))
		if err != nil || u.Host == "" {
			return "", corpus.Errorf(corpus.EINVALID, "invalid document ID %q", id)
		}
		index := u.Path == "" || strings.HasSuffix(u.Path, "/")
		p := strings.TrimPrefix(path.Clean("/"+u.Path), "/")
		if index {
			p = path.Join(p, "index")
		}
		rel = path.Join(u.Hostname(), p)
	case strings.HasPrefix(base, corpus.UploadedPrefix):
		name := corpus.FileName(strings.TrimPrefix(base, corpus.UploadedPrefix))
		if name == "" {
			return "", corpus.Errorf(corpus.EINVALID, "invalid document ID %q", id)
		}
		rel = path.Join("uploaded", name)
	default:
		return "", corpus.Errorf(corpus.EINVALID, "unsupported document ID %q", id)
	}

	rel = path.Clean(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", corpus.Errorf(corpus.EINVALID, "document ID %q escapes the export directory", id)
	}
	return filepath.FromSlash(rel + suffix + ".md"), nil
}

// frontmatter is the YAML header written above each document.
type frontmatter struct {
	ID          string `yaml:"id"`
	Source      string `yaml:"source,omitempty"`
	Title       string `yaml:"title,omitempty"`
	ContentType string `yaml:"content_type,omitempty"`
	Parent      string `yaml:"parent,omitempty"`
	Hash        string `yaml:"content_hash,omitempty"`
	Images      int    `yaml:"images,omitempty"`
	Files       int    `yaml:"files,omitempty"`
}

// FormatDocument formats a document as markdown with YAML frontmatter.
func FormatDocument(doc *corpus.Document) (string, error) {
	fm := frontmatter{
		ID:          doc.ID,
		Source:      doc.SourceURL,
		Title:       doc.Meta[corpus.MetaTitle],
		ContentType: doc.ContentType,
		Parent:      doc.Parent,
		Hash:        doc.Meta[corpus.MetaContentHash],
		Images:      len(doc.Images),
		Files:       len(doc.Files),
	}
	header, err := yaml.Marshal(&fm)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")
	b.WriteString(doc.Text)
	if doc.Text != "" && !strings.HasSuffix(doc.Text, "\n") {
		b.WriteString("\n")
	}
	return b.String(), nil
}
