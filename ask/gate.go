package ask

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent is the default number of generations allowed to run
// at once.
const DefaultMaxConcurrent = 2

// GateStats is a point-in-time view of a Gate.
type GateStats struct {
	Active int64 `json:"active"`
	Queued int64 `json:"queued"`
	Total  int64 `json:"total"`
	Limit  int64 `json:"limit"`
}

// Gate admits a bounded number of concurrent generations. Callers beyond
// the limit wait in line until a slot frees or their context ends.
type Gate struct {
	sem   *semaphore.Weighted
	limit int64

	active atomic.Int64
	queued atomic.Int64
	total  atomic.Int64
}

// NewGate creates a Gate with n slots. Non-positive n selects
// DefaultMaxConcurrent.
func NewGate(n int) *Gate {
	if n <= 0 {
		n = DefaultMaxConcurrent
	}
	return &Gate{sem: semaphore.NewWeighted(int64(n)), limit: int64(n)}
}

// Acquire waits for a slot. The returned release function must be called
// exactly once when the caller is done.
func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	g.queued.Add(1)
	err = g.sem.Acquire(ctx, 1)
	g.queued.Add(-1)
	if err != nil {
		return nil, err
	}
	g.active.Add(1)
	g.total.Add(1)

	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			g.active.Add(-1)
			g.sem.Release(1)
		}
	}, nil
}

// Stats returns the current gate counters.
func (g *Gate) Stats() GateStats {
	return GateStats{
		Active: g.active.Load(),
		Queued: g.queued.Load(),
		Total:  g.total.Load(),
		Limit:  g.limit,
	}
}
