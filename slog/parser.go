package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/corpus"
)

// Ensure LoggingPageParser implements corpus.PageParser.
var _ corpus.PageParser = (*LoggingPageParser)(nil)

// LoggingPageParser wraps a PageParser with debug logging.
type LoggingPageParser struct {
	next   corpus.PageParser
	logger *slog.Logger
}

// NewLoggingPageParser creates a new LoggingPageParser.
func NewLoggingPageParser(next corpus.PageParser, logger *slog.Logger) *LoggingPageParser {
	return &LoggingPageParser{next: next, logger: logger}
}

// Parse delegates to the wrapped parser and logs the discovered references.
func (p *LoggingPageParser) Parse(html []byte, baseURL string) (page *corpus.Page, err error) {
	defer func(begin time.Time) {
		attrs := []any{"url", baseURL, "duration", time.Since(begin), "err", err}
		if page != nil {
			attrs = append(attrs,
				"title", page.Title,
				"links", len(page.Links),
				"images", len(page.Images),
				"files", len(page.Files),
			)
		}
		p.logger.Debug("parse page", attrs...)
	}(time.Now())
	return p.next.Parse(html, baseURL)
}
