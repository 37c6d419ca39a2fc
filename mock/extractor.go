package mock

import (
	"github.com/fwojciec/corpus"
)

var _ corpus.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of corpus.Extractor.
type Extractor struct {
	ExtractFn func(data []byte, hint string) *corpus.Extraction
}

func (e *Extractor) Extract(data []byte, hint string) *corpus.Extraction {
	return e.ExtractFn(data, hint)
}

var _ corpus.Converter = (*Converter)(nil)

// Converter is a mock implementation of corpus.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}

var _ corpus.OCR = (*OCR)(nil)

// OCR is a mock implementation of corpus.OCR.
type OCR struct {
	RecognizeFn func(image []byte) (string, error)
}

func (o *OCR) Recognize(image []byte) (string, error) {
	return o.RecognizeFn(image)
}
