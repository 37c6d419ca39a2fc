// Package htmltomarkdown converts HTML documents to Markdown text using
// github.com/JohannesKaufmann/html-to-markdown.
package htmltomarkdown

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/extract"
)

var _ corpus.Converter = (*Converter)(nil)

// Converter wraps html-to-markdown. It also serves as the extract.Parser
// for standalone HTML files.
type Converter struct {
	conv *converter.Converter
}

// NewConverter creates a new Converter.
func NewConverter() *Converter {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	return &Converter{conv: conv}
}

// Convert transforms HTML content into Markdown.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", corpus.Errorf(corpus.EINVALID, "empty HTML input")
	}
	return c.conv.ConvertString(html)
}

// Parse decodes an HTML file using its declared charset and returns its
// Markdown rendering. Blank files extract nothing.
func (c *Converter) Parse(data []byte, _ string) (*corpus.Extraction, error) {
	html := extract.DecodeText(data, "text/html")
	if strings.TrimSpace(html) == "" {
		return &corpus.Extraction{}, nil
	}
	md, err := c.Convert(html)
	if err != nil {
		return nil, err
	}
	return &corpus.Extraction{Text: strings.TrimSpace(md)}, nil
}
