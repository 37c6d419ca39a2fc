package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/corpus"
)

var _ corpus.SitemapService = (*LoggingSitemapService)(nil)

// LoggingSitemapService logs the frontier seeds a SitemapService finds
// for a crawl root. A failed lookup is logged at warn level, since the
// crawl carries on from the root page alone; a site without a sitemap is
// logged at debug level.
type LoggingSitemapService struct {
	next   corpus.SitemapService
	logger *slog.Logger
}

// NewLoggingSitemapService wraps next.
func NewLoggingSitemapService(next corpus.SitemapService, logger *slog.Logger) *LoggingSitemapService {
	return &LoggingSitemapService{next: next, logger: logger}
}

// DiscoverURLs returns the seeds found by the wrapped service.
func (s *LoggingSitemapService) DiscoverURLs(ctx context.Context, root string) (seeds []string, err error) {
	begin := time.Now()
	seeds, err = s.next.DiscoverURLs(ctx, root)

	attrs := []any{"root", root, "seeds", len(seeds), "duration", time.Since(begin)}
	switch {
	case err != nil:
		s.logger.Warn("sitemap seeding failed", append(attrs, "err", err)...)
	case len(seeds) == 0:
		s.logger.Debug("sitemap seeding found nothing", attrs...)
	default:
		s.logger.Info("sitemap seeding", append(attrs, "first", seeds[0])...)
	}
	return seeds, err
}
