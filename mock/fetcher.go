package mock

import (
	"context"

	"github.com/fwojciec/corpus"
)

var _ corpus.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of corpus.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (*corpus.Response, error)
	CloseFn func() error
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*corpus.Response, error) {
	return f.FetchFn(ctx, url)
}

func (f *Fetcher) Close() error {
	return f.CloseFn()
}

var _ corpus.SitemapService = (*SitemapService)(nil)

// SitemapService is a mock implementation of corpus.SitemapService.
type SitemapService struct {
	DiscoverURLsFn func(ctx context.Context, baseURL string) ([]string, error)
}

func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string) ([]string, error) {
	return s.DiscoverURLsFn(ctx, baseURL)
}

var _ corpus.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter is a mock implementation of corpus.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return d.WaitFn(ctx, domain)
}
