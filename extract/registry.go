// Package extract dispatches raw bytes to format-specific parsers and
// returns extracted text with embedded images and files.
package extract

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/fwojciec/corpus"
)

var _ corpus.Extractor = (*Registry)(nil)

// Parser extracts one format.
type Parser interface {
	Parse(data []byte, name string) (*corpus.Extraction, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(data []byte, name string) (*corpus.Extraction, error)

// Parse calls f(data, name).
func (f ParserFunc) Parse(data []byte, name string) (*corpus.Extraction, error) {
	return f(data, name)
}

// Archive limits.
const (
	DefaultMaxArchiveDepth = 4
	DefaultMaxArchiveBytes = 256 << 20
)

// Registry is a strategy table of parsers keyed by format. Formats
// without a registered parser extract nothing. Text, image, archive and
// unknown binaries are handled by the registry itself.
type Registry struct {
	parsers  map[Format]Parser
	ocr      corpus.OCR
	logger   *slog.Logger
	maxDepth int
	maxBytes int64
}

// Option configures a Registry.
type Option func(*Registry)

// WithParser registers parser for format, replacing any previous one.
func WithParser(format Format, parser Parser) Option {
	return func(r *Registry) {
		r.parsers[format] = parser
	}
}

// WithOCR enables text recognition for images.
func WithOCR(ocr corpus.OCR) Option {
	return func(r *Registry) {
		r.ocr = ocr
	}
}

// WithLogger sets the logger that receives parse failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithArchiveLimits caps nested archive depth and the total number of
// bytes decompressed from archives in one extraction.
func WithArchiveLimits(maxDepth int, maxBytes int64) Option {
	return func(r *Registry) {
		r.maxDepth = maxDepth
		r.maxBytes = maxBytes
	}
}

// NewRegistry creates a Registry with the built-in parsers.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		parsers:  make(map[Format]Parser),
		logger:   slog.New(slog.DiscardHandler),
		maxDepth: DefaultMaxArchiveDepth,
		maxBytes: DefaultMaxArchiveBytes,
	}
	r.parsers[FormatText] = ParserFunc(parseText)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Supports reports whether a parser is registered for format.
func (r *Registry) Supports(format Format) bool {
	switch format {
	case FormatImage, FormatArchive, FormatGzip, FormatUnknown:
		return true
	}
	_, ok := r.parsers[format]
	return ok
}

// Extract dispatches data by hint and content. It never fails: parser
// errors and panics yield an empty result.
func (r *Registry) Extract(data []byte, hint string) *corpus.Extraction {
	b := &budget{remaining: r.maxBytes}
	return r.extract(data, hint, 0, b)
}

func (r *Registry) extract(data []byte, hint string, depth int, b *budget) *corpus.Extraction {
	format := Detect(data, hint)

	var (
		ext *corpus.Extraction
		err error
	)
	source := assetSource(hint, depth)

	switch format {
	case FormatImage:
		ext = r.parseImage(data, hint, source)
	case FormatArchive:
		ext, err = r.parseArchive(data, hint, depth, b)
	case FormatGzip:
		ext, err = r.parseGzip(data, hint, depth, b)
	case FormatUnknown:
		ext = opaque(data, hint, source)
	default:
		ext, err = r.parse(format, data, hint)
	}

	if err != nil {
		r.logger.Warn("extract failed", "name", hint, "format", format, "err", err)
		return &corpus.Extraction{}
	}
	if ext == nil {
		return &corpus.Extraction{}
	}
	return ext
}

// parse runs a registered parser, converting panics into errors.
func (r *Registry) parse(format Format, data []byte, name string) (ext *corpus.Extraction, err error) {
	p, ok := r.parsers[format]
	if !ok {
		return &corpus.Extraction{}, nil
	}
	defer func() {
		if v := recover(); v != nil {
			r.logger.Debug("parser panic", "format", format, "stack", string(debug.Stack()))
			ext, err = nil, fmt.Errorf("%s parser panic: %v", format, v)
		}
	}()
	return p.Parse(data, name)
}

// parseImage keeps the raw bytes as one asset and adds recognized text
// when OCR is available. OCR failures are ignored.
func (r *Registry) parseImage(data []byte, name, source string) *corpus.Extraction {
	ext := &corpus.Extraction{
		Images: []corpus.Asset{{
			Content:  data,
			MIME:     MIMEType(data, name),
			Source:   source,
			Filename: corpus.FileName(name),
		}},
	}
	if r.ocr != nil {
		ext.Text = r.recognize(data)
	}
	return ext
}

func (r *Registry) recognize(data []byte) (text string) {
	defer func() {
		if v := recover(); v != nil {
			text = ""
		}
	}()
	text, err := r.ocr.Recognize(data)
	if err != nil {
		return ""
	}
	return text
}

// assetSource returns the source of an asset surfaced whole. Only the
// top-level payload is addressed by its own name.
func assetSource(name string, depth int) string {
	if depth > 0 {
		return corpus.EmbeddedID(name)
	}
	return name
}

// opaque surfaces data unchanged as a single file asset. Assets found
// inside an archive are sourced from an embedded ID.
func opaque(data []byte, name, source string) *corpus.Extraction {
	return &corpus.Extraction{
		Files: []corpus.Asset{{
			Content:  data,
			MIME:     MIMEType(data, name),
			Source:   source,
			Filename: corpus.FileName(name),
		}},
	}
}
