package etree

import (
	"fmt"
	"path"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/corpus"
)

const pptxMain = "ppt/presentation.xml"

// ParsePPTX extracts shape text from each slide in presentation order.
// Pictures become assets with ids of the form
// "<name>:slide<n>:<media file>" and an inline marker.
func ParsePPTX(data []byte, name string) (*corpus.Extraction, error) {
	pkg, err := openPackage(data, name)
	if err != nil {
		return nil, err
	}
	slides, err := slideParts(pkg)
	if err != nil {
		return nil, err
	}

	var (
		a     assets
		texts []string
	)
	for i, part := range slides {
		root, err := pkg.xml(part)
		if err != nil {
			continue
		}
		s := &slideWalker{pkg: pkg, n: i + 1, rels: pkg.rels(part), assets: &a}
		s.walk(root)
		if text := strings.TrimSpace(strings.Join(s.blocks, "\n")); text != "" {
			texts = append(texts, text)
		}
	}

	return &corpus.Extraction{
		Text:   strings.Join(texts, "\n\n"),
		Images: a.images,
	}, nil
}

// slideParts returns slide part names in presentation order, falling
// back to the slide list in the package when the presentation part does
// not list them.
func slideParts(pkg *opcPackage) ([]string, error) {
	root, err := pkg.xml(pptxMain)
	if err != nil {
		return nil, err
	}
	rels := pkg.rels(pptxMain)

	var parts []string
	for _, el := range root.FindElements("//sldIdLst/sldId") {
		if part, ok := rels[el.SelectAttrValue("r:id", "")]; ok {
			parts = append(parts, part)
		}
	}
	if len(parts) > 0 {
		return parts, nil
	}
	for n := 1; ; n++ {
		part := fmt.Sprintf("ppt/slides/slide%d.xml", n)
		if _, ok := pkg.parts[part]; !ok {
			break
		}
		parts = append(parts, part)
	}
	return parts, nil
}

type slideWalker struct {
	pkg    *opcPackage
	n      int
	rels   map[string]string
	assets *assets
	blocks []string
}

func (s *slideWalker) walk(el *etree.Element) {
	for _, c := range el.ChildElements() {
		switch {
		case is(c, "p", "txBody"):
			s.textBody(c)
		case is(c, "a", "blip"):
			s.image(blipID(c))
		default:
			s.walk(c)
		}
	}
}

func (s *slideWalker) textBody(body *etree.Element) {
	var paras []string
	for _, p := range body.SelectElements("p") {
		var b strings.Builder
		for _, t := range p.FindElements(".//t") {
			b.WriteString(t.Text())
		}
		paras = append(paras, b.String())
	}
	if text := strings.TrimSpace(strings.Join(paras, "\n")); text != "" {
		s.blocks = append(s.blocks, text)
	}
}

func (s *slideWalker) image(relID string) {
	part, ok := s.rels[relID]
	if !ok {
		return
	}
	id := corpus.EmbeddedID(s.pkg.name, fmt.Sprintf("slide%d", s.n), path.Base(part))
	img := s.pkg.image(id, part)
	if img == nil {
		return
	}
	s.assets.add(img)
	s.blocks = append(s.blocks, corpus.ImageMarker(id))
}
