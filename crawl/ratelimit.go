package crawl

import (
	"context"
	"net"
	"sync"

	"github.com/fwojciec/corpus"
	"golang.org/x/time/rate"
)

var _ corpus.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter spaces out requests to each registrable domain, so that
// docs.example.com and cdn.example.com draw from one budget the way they
// share one crawl scope. Ports are ignored.
type DomainLimiter struct {
	every rate.Limit

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewDomainLimiter allows rps requests per second to each domain with no
// burst. rps <= 0 means unlimited.
func NewDomainLimiter(rps float64) *DomainLimiter {
	d := &DomainLimiter{every: rate.Inf, buckets: map[string]*rate.Limiter{}}
	if rps > 0 {
		d.every = rate.Limit(rps)
	}
	return d
}

// Wait blocks until a request to host may proceed or ctx is done.
func (d *DomainLimiter) Wait(ctx context.Context, host string) error {
	if d.every == rate.Inf {
		return ctx.Err()
	}
	return d.bucket(host).Wait(ctx)
}

// Domains returns the number of domains seen so far.
func (d *DomainLimiter) Domains() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buckets)
}

func (d *DomainLimiter) bucket(host string) *rate.Limiter {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	key := RegistrableDomain(host)

	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buckets[key]
	if !ok {
		b = rate.NewLimiter(d.every, 1)
		d.buckets[key] = b
	}
	return b
}
