// Package trafilatura extracts page metadata using
// github.com/markusmobius/go-trafilatura.
package trafilatura

import (
	"bytes"
	"errors"
	"net/url"
	"strings"

	"github.com/fwojciec/corpus"
	"github.com/markusmobius/go-trafilatura"
)

var _ corpus.MetaExtractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura to describe a page.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractMeta returns the title, author, description and site name found
// in the page head and body. Empty values are omitted.
func (e *Extractor) ExtractMeta(html []byte, pageURL string) (map[string]string, error) {
	if len(bytes.TrimSpace(html)) == 0 {
		return nil, errors.New("empty HTML input")
	}

	opts := trafilatura.Options{
		EnableFallback: true,
	}
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		opts.OriginalURL = u
	}

	result, err := trafilatura.Extract(bytes.NewReader(html), opts)
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	set(meta, corpus.MetaTitle, result.Metadata.Title)
	set(meta, corpus.MetaAuthor, result.Metadata.Author)
	set(meta, corpus.MetaDescription, result.Metadata.Description)
	set(meta, corpus.MetaSiteName, result.Metadata.Sitename)
	return meta, nil
}

func set(meta map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		meta[key] = v
	}
}
