package mock

import (
	"github.com/fwojciec/corpus"
)

var _ corpus.PageParser = (*PageParser)(nil)

// PageParser is a mock implementation of corpus.PageParser.
type PageParser struct {
	ParseFn func(html []byte, baseURL string) (*corpus.Page, error)
}

func (p *PageParser) Parse(html []byte, baseURL string) (*corpus.Page, error) {
	return p.ParseFn(html, baseURL)
}

var _ corpus.MetaExtractor = (*MetaExtractor)(nil)

// MetaExtractor is a mock implementation of corpus.MetaExtractor.
type MetaExtractor struct {
	ExtractMetaFn func(html []byte, pageURL string) (map[string]string, error)
}

func (m *MetaExtractor) ExtractMeta(html []byte, pageURL string) (map[string]string, error) {
	return m.ExtractMetaFn(html, pageURL)
}
