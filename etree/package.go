// Package etree extracts text and images from Office Open XML documents
// using github.com/beevik/etree.
package etree

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/corpus"
	"github.com/klauspost/compress/zip"
)

// maxPartBytes caps a single part read from a package.
const maxPartBytes = 64 << 20

// opcPackage is an open OOXML zip container.
type opcPackage struct {
	name  string
	parts map[string]*zip.File
}

func openPackage(data []byte, name string) (*opcPackage, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}
	parts := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		parts[strings.TrimPrefix(f.Name, "/")] = f
	}
	if strings.TrimSpace(name) == "" {
		name = "document"
	}
	return &opcPackage{name: name, parts: parts}, nil
}

func (p *opcPackage) read(part string) ([]byte, error) {
	f, ok := p.parts[part]
	if !ok {
		return nil, fmt.Errorf("missing part %s", part)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxPartBytes))
}

func (p *opcPackage) xml(part string) (*etree.Element, error) {
	data, err := p.read(part)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", part, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("empty %s", part)
	}
	return root, nil
}

// rels maps relationship ids of part to absolute part names. External
// targets are omitted. A missing relationships part yields an empty map.
func (p *opcPackage) rels(part string) map[string]string {
	out := make(map[string]string)
	dir, file := path.Split(part)
	root, err := p.xml(dir + "_rels/" + file + ".rels")
	if err != nil {
		return out
	}
	for _, rel := range root.SelectElements("Relationship") {
		if rel.SelectAttrValue("TargetMode", "") == "External" {
			continue
		}
		target := rel.SelectAttrValue("Target", "")
		if target == "" {
			continue
		}
		if strings.HasPrefix(target, "/") {
			target = strings.TrimPrefix(target, "/")
		} else {
			target = path.Join(dir, target)
		}
		out[rel.SelectAttrValue("Id", "")] = target
	}
	return out
}

// image returns the asset stored at part, or nil when the part is
// missing.
func (p *opcPackage) image(id, part string) *corpus.Asset {
	data, err := p.read(part)
	if err != nil || len(data) == 0 {
		return nil
	}
	mt := mime.TypeByExtension(path.Ext(part))
	if mt == "" {
		mt = "application/octet-stream"
	}
	return &corpus.Asset{
		Content:  data,
		MIME:     mt,
		Source:   id,
		Filename: path.Base(part),
	}
}

// assets collects images in first-reference order.
type assets struct {
	seen   map[string]bool
	images []corpus.Asset
}

func (a *assets) add(img *corpus.Asset) {
	if a.seen == nil {
		a.seen = make(map[string]bool)
	}
	if a.seen[img.Source] {
		return
	}
	a.seen[img.Source] = true
	a.images = append(a.images, *img)
}

// is reports whether el is the named element in the given prefix.
func is(el *etree.Element, space, tag string) bool {
	return el.Space == space && el.Tag == tag
}

// blipID returns the relationship id of an a:blip element.
func blipID(el *etree.Element) string {
	if id := el.SelectAttrValue("r:embed", ""); id != "" {
		return id
	}
	return el.SelectAttrValue("r:link", "")
}
