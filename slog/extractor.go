package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/corpus"
)

// Ensure LoggingExtractor implements corpus.Extractor.
var _ corpus.Extractor = (*LoggingExtractor)(nil)

// LoggingExtractor wraps an Extractor with debug logging.
type LoggingExtractor struct {
	next   corpus.Extractor
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor.
func NewLoggingExtractor(next corpus.Extractor, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, logger: logger}
}

// Extract delegates to the wrapped extractor and logs what was found.
func (e *LoggingExtractor) Extract(data []byte, hint string) (ext *corpus.Extraction) {
	defer func(begin time.Time) {
		e.logger.Debug("extract",
			"hint", hint,
			"bytes", len(data),
			"text_chars", len(ext.Text),
			"images", len(ext.Images),
			"files", len(ext.Files),
			"duration", time.Since(begin),
		)
	}(time.Now())
	ext = e.next.Extract(data, hint)
	if ext == nil {
		ext = &corpus.Extraction{}
	}
	return ext
}
