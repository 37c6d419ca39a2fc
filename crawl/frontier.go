package crawl

import (
	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/bloom"
)

var _ corpus.URLFrontier = (*Frontier)(nil)

// Frontier is a FIFO queue of URLs to visit. A URL is accepted at most
// once over the frontier's lifetime, so a popped URL cannot be queued again.
//
// Frontier is owned by a single crawl and is not safe for concurrent use.
type Frontier struct {
	seen  *bloom.Set
	queue []corpus.FrontierEntry
	head  int
}

// NewFrontier creates a Frontier sized for n expected URLs.
func NewFrontier(n uint) *Frontier {
	if n == 0 {
		n = 1
	}
	return &Frontier{seen: bloom.NewSet(n, 0.01)}
}

// Push enqueues url at depth. Returns false if url was queued before.
func (f *Frontier) Push(url string, depth int) bool {
	if !f.seen.Add(url) {
		return false
	}
	f.queue = append(f.queue, corpus.FrontierEntry{URL: url, Depth: depth})
	return true
}

// Pop returns the oldest queued entry.
func (f *Frontier) Pop() (corpus.FrontierEntry, bool) {
	if f.head == len(f.queue) {
		return corpus.FrontierEntry{}, false
	}
	e := f.queue[f.head]
	f.queue[f.head] = corpus.FrontierEntry{}
	f.head++
	if f.head == len(f.queue) {
		f.queue = f.queue[:0]
		f.head = 0
	}
	return e, true
}

// Len returns the number of queued entries.
func (f *Frontier) Len() int {
	return len(f.queue) - f.head
}

// Seen returns true if url has been queued.
func (f *Frontier) Seen(url string) bool {
	return f.seen.Has(url)
}
