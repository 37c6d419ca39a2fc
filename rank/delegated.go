package rank

import (
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/corpus"
	"golang.org/x/sync/errgroup"
)

var _ corpus.Ranker = (*Delegated)(nil)

// Defaults for delegated scoring.
const (
	DefaultThreshold    = 0.25
	DefaultConcurrency  = 4
	DefaultScoreTimeout = 30 * time.Second
)

// Delegated ranks chunks by asking a text-generation service to rate each
// one against the query.
type Delegated struct {
	source    SnapshotSource
	generator corpus.Generator
	budget    Budget

	// Threshold is the score a chunk must exceed to be kept.
	Threshold float64

	// Concurrency bounds the number of scoring calls in flight.
	Concurrency int

	// Timeout bounds each scoring call. A timed-out call scores zero.
	Timeout time.Duration

	// Fallback is the number of top chunks kept when none pass Threshold.
	Fallback int
}

// NewDelegated creates a delegated ranker with default settings.
func NewDelegated(source SnapshotSource, generator corpus.Generator, budget Budget) *Delegated {
	return &Delegated{
		source:      source,
		generator:   generator,
		budget:      budget,
		Threshold:   DefaultThreshold,
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultScoreTimeout,
		Fallback:    DefaultFallbackResults,
	}
}

// Retrieve scores every chunk, keeps those above the threshold (or the top
// few when none qualify) and selects up to k under the budget. Final order
// is by descending score, ties in insertion order, regardless of which
// scoring call finished first.
func (r *Delegated) Retrieve(ctx context.Context, query string, k int) ([]*corpus.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := r.source.Snapshot()
	if snap.TotalChunks() == 0 {
		return nil, nil
	}

	scores := r.scoreAll(ctx, query, snap.Chunks)

	ranked := make([]Scored, len(snap.Chunks))
	for i, c := range snap.Chunks {
		ranked[i] = Scored{Chunk: c, Score: scores[i]}
	}
	slices.SortStableFunc(ranked, func(a, b Scored) int {
		return cmp.Compare(b.Score, a.Score)
	})

	kept := slices.DeleteFunc(slices.Clone(ranked), func(s Scored) bool {
		return s.Score <= r.Threshold
	})
	if len(kept) == 0 {
		kept = ranked[:min(r.Fallback, len(ranked))]
	}

	return AttachAssets(snap, r.budget.Select(ctx, kept, k)), nil
}

func (r *Delegated) scoreAll(ctx context.Context, query string, chunks []*corpus.Chunk) []float64 {
	scores := make([]float64, len(chunks))

	var g errgroup.Group
	g.SetLimit(max(1, r.Concurrency))
	for i, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		g.Go(func() error {
			scores[i] = r.score(ctx, query, c.Text)
			return nil
		})
	}
	_ = g.Wait()

	return scores
}

// score never fails: service errors and unparseable replies score zero.
func (r *Delegated) score(ctx context.Context, query, text string) float64 {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var reply strings.Builder
	err := r.generator.Generate(ctx, ScoringMessages(query, text), func(fragment string) error {
		reply.WriteString(fragment)
		return nil
	})
	if err != nil {
		return 0
	}
	return ParseScore(reply.String())
}

// ScoringMessages returns the rubric prompt for rating text against query.
func ScoringMessages(query, text string) []corpus.Message {
	return []corpus.Message{
		{
			Role: corpus.RoleSystem,
			Content: "You rate how useful a passage is for answering a question. " +
				"Reply with a single decimal number between 0.0 and 1.0 and nothing else. " +
				"1.0 means the passage directly answers the question, 0.5 means it is related " +
				"but incomplete, 0.0 means it is unrelated.",
		},
		{
			Role:    corpus.RoleUser,
			Content: fmt.Sprintf("Question:\n%s\n\nPassage:\n%s\n\nScore:", query, text),
		},
	}
}

var decimalRe = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)`)

// ParseScore returns the first decimal number in reply clamped to [0, 1],
// or zero if there is none.
func ParseScore(reply string) float64 {
	m := decimalRe.FindString(reply)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return min(1, max(0, v))
}
