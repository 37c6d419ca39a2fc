// Package bloom provides an exact URL set fronted by a Bloom filter.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// Set records URLs. Membership answers are exact: the Bloom filter only
// short-circuits lookups of URLs that were never added.
type Set struct {
	f     *bloom.BloomFilter
	exact map[string]struct{}
}

// NewSet creates a Set sized for n expected URLs with the given false
// positive rate for the prefilter.
func NewSet(n uint, fpRate float64) *Set {
	return &Set{
		f:     bloom.NewWithEstimates(n, fpRate),
		exact: make(map[string]struct{}),
	}
}

// Add records url. Returns false if url was already present.
func (s *Set) Add(url string) bool {
	if s.Has(url) {
		return false
	}
	s.f.AddString(url)
	s.exact[url] = struct{}{}
	return true
}

// Has reports whether url was added.
func (s *Set) Has(url string) bool {
	if !s.f.TestString(url) {
		return false
	}
	_, ok := s.exact[url]
	return ok
}

// Len returns the number of URLs in the set.
func (s *Set) Len() int {
	return len(s.exact)
}

// EstimatedCount returns the prefilter's approximation of Len.
func (s *Set) EstimatedCount() uint {
	return uint(s.f.ApproximatedSize())
}
