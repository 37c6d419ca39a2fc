// Package readability extracts page metadata using
// github.com/go-shiori/go-readability.
package readability

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/fwojciec/corpus"
	"github.com/go-shiori/go-readability"
)

var _ corpus.MetaExtractor = (*Extractor)(nil)

// Extractor wraps go-readability to describe an article page.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractMeta returns the article title, byline, excerpt and site name.
// Empty values are omitted.
func (e *Extractor) ExtractMeta(html []byte, pageURL string) (map[string]string, error) {
	if len(bytes.TrimSpace(html)) == 0 {
		return nil, corpus.Errorf(corpus.EINVALID, "empty HTML input")
	}

	var u *url.URL
	if pageURL != "" {
		parsed, err := url.Parse(pageURL)
		if err != nil {
			return nil, corpus.Errorf(corpus.EINVALID, "invalid page URL: %v", err)
		}
		u = parsed
	}

	article, err := readability.FromReader(bytes.NewReader(html), u)
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	set(meta, corpus.MetaTitle, article.Title)
	set(meta, corpus.MetaAuthor, article.Byline)
	set(meta, corpus.MetaDescription, article.Excerpt)
	set(meta, corpus.MetaSiteName, article.SiteName)
	return meta, nil
}

func set(meta map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		meta[key] = v
	}
}
