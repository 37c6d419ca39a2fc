package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/corpus"
)

// Ensure LoggingGenerator implements corpus.Generator.
var _ corpus.Generator = (*LoggingGenerator)(nil)

// LoggingGenerator wraps a Generator with logging.
type LoggingGenerator struct {
	next   corpus.Generator
	logger *slog.Logger
}

// NewLoggingGenerator creates a new LoggingGenerator.
func NewLoggingGenerator(next corpus.Generator, logger *slog.Logger) *LoggingGenerator {
	return &LoggingGenerator{next: next, logger: logger}
}

// Generate delegates to the wrapped generator and logs prompt and output
// sizes.
func (g *LoggingGenerator) Generate(ctx context.Context, messages []corpus.Message, fn corpus.GenerateFunc) (err error) {
	var (
		fragments int
		chars     int
		images    int
	)
	for _, m := range messages {
		images += len(m.Images)
	}
	defer func(begin time.Time) {
		g.logger.Info("generate",
			"messages", len(messages),
			"images", images,
			"fragments", fragments,
			"chars", chars,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return g.next.Generate(ctx, messages, func(fragment string) error {
		fragments++
		chars += len(fragment)
		return fn(fragment)
	})
}
