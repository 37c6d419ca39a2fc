package corpus

import "context"

// FrontierEntry is a queued URL and the link depth it was found at.
type FrontierEntry struct {
	URL   string
	Depth int
}

// URLFrontier is a FIFO crawl queue with deduplication.
type URLFrontier interface {
	// Push enqueues a URL at depth.
	// Returns false if the URL has already been queued.
	Push(url string, depth int) bool

	// Pop returns the oldest queued entry.
	// Returns false if the frontier is empty.
	Pop() (FrontierEntry, bool)

	// Len returns the number of queued entries.
	Len() int

	// Seen returns true if the URL has been queued.
	Seen(url string) bool
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}
