package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/corpus"
)

// Ensure LoggingRanker implements corpus.Ranker.
var _ corpus.Ranker = (*LoggingRanker)(nil)

// LoggingRanker wraps a Ranker with logging.
type LoggingRanker struct {
	next   corpus.Ranker
	logger *slog.Logger
}

// NewLoggingRanker creates a new LoggingRanker.
func NewLoggingRanker(next corpus.Ranker, logger *slog.Logger) *LoggingRanker {
	return &LoggingRanker{next: next, logger: logger}
}

// Retrieve delegates to the wrapped ranker and logs the result set.
func (r *LoggingRanker) Retrieve(ctx context.Context, query string, k int) (chunks []*corpus.Chunk, err error) {
	defer func(begin time.Time) {
		ids := make([]string, len(chunks))
		for i, c := range chunks {
			ids[i] = c.ID
		}
		r.logger.Info("retrieve",
			"query", query,
			"k", k,
			"count", len(chunks),
			"chunks", ids,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return r.next.Retrieve(ctx, query, k)
}
