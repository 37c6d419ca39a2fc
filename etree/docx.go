package etree

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/corpus"
)

const docxMain = "word/document.xml"

// ParseDOCX extracts paragraph text from a Word document. Embedded
// pictures become assets with ids of the form "<name>:<part>" and an
// inline marker where they are anchored.
func ParseDOCX(data []byte, name string) (*corpus.Extraction, error) {
	pkg, err := openPackage(data, name)
	if err != nil {
		return nil, err
	}
	root, err := pkg.xml(docxMain)
	if err != nil {
		return nil, err
	}

	w := &docxWalker{pkg: pkg, rels: pkg.rels(docxMain)}
	body := root.SelectElement("body")
	if body == nil {
		body = root
	}
	w.walk(body)

	return &corpus.Extraction{
		Text:   strings.TrimSpace(strings.Join(w.paragraphs, "\n")),
		Images: w.assets.images,
	}, nil
}

type docxWalker struct {
	pkg        *opcPackage
	rels       map[string]string
	assets     assets
	paragraphs []string
}

func (w *docxWalker) walk(el *etree.Element) {
	for _, child := range el.ChildElements() {
		if is(child, "w", "p") {
			w.paragraph(child)
			continue
		}
		w.walk(child)
	}
}

func (w *docxWalker) paragraph(p *etree.Element) {
	var b strings.Builder
	var markers []string
	var visit func(el *etree.Element)
	visit = func(el *etree.Element) {
		for _, c := range el.ChildElements() {
			switch {
			case is(c, "w", "t"):
				b.WriteString(c.Text())
			case is(c, "w", "tab"):
				b.WriteByte('\t')
			case is(c, "w", "br"), is(c, "w", "cr"):
				b.WriteByte('\n')
			case is(c, "a", "blip"):
				if m := w.image(blipID(c)); m != "" {
					markers = append(markers, m)
				}
			default:
				visit(c)
			}
		}
	}
	visit(p)

	text := b.String()
	if len(markers) > 0 {
		if strings.TrimSpace(text) != "" {
			text += "\n"
		}
		text += strings.Join(markers, "\n")
	}
	w.paragraphs = append(w.paragraphs, text)
}

func (w *docxWalker) image(relID string) string {
	part, ok := w.rels[relID]
	if !ok {
		return ""
	}
	id := corpus.EmbeddedID(w.pkg.name, part)
	img := w.pkg.image(id, part)
	if img == nil {
		return ""
	}
	w.assets.add(img)
	return corpus.ImageMarker(id)
}
