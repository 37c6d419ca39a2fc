// Package rank scores chunks against a query and selects a token-bounded
// result set.
package rank

import (
	"context"
	"math"
	"unicode/utf8"

	"github.com/fwojciec/corpus"
)

// Defaults for result selection.
const (
	DefaultK               = 5
	DefaultMaxTokens       = 3500
	DefaultCharsPerToken   = 4
	DefaultFallbackResults = 5
)

// SnapshotSource provides consistent views of the indexed corpus.
type SnapshotSource interface {
	Snapshot() *corpus.Snapshot
}

// Scored is a chunk with its relevance score.
type Scored struct {
	Chunk *corpus.Chunk
	Score float64
}

// Budget selects chunks under an estimated token ceiling.
type Budget struct {
	// MaxTokens is the ceiling on the summed token cost of a result set.
	MaxTokens int

	// CharsPerToken is the ratio used to estimate token cost.
	CharsPerToken int

	// Counter, if set, replaces the estimate with an exact count.
	// Counting errors fall back to the estimate.
	Counter corpus.TokenCounter
}

// DefaultBudget returns the default budget: 3500 tokens at 4 chars each.
func DefaultBudget() Budget {
	return Budget{MaxTokens: DefaultMaxTokens, CharsPerToken: DefaultCharsPerToken}
}

// Tokens returns the token cost of text.
func (b Budget) Tokens(ctx context.Context, text string) int {
	if text == "" {
		return 0
	}
	if b.Counter != nil {
		if n, err := b.Counter.CountTokens(ctx, text); err == nil {
			return n
		}
	}
	ratio := b.CharsPerToken
	if ratio <= 0 {
		ratio = DefaultCharsPerToken
	}
	return max(1, int(math.Ceil(float64(utf8.RuneCountInString(text))/float64(ratio))))
}

// Select walks ranked in order and accepts chunks until k are accepted or
// the next chunk would exceed the budget. The first candidate is always
// accepted, even when it alone exceeds the budget.
func (b Budget) Select(ctx context.Context, ranked []Scored, k int) []Scored {
	if k <= 0 {
		k = DefaultK
	}

	var (
		selected []Scored
		used     int
	)
	for _, s := range ranked {
		if len(selected) >= k {
			break
		}
		cost := b.Tokens(ctx, s.Chunk.Text)
		if len(selected) > 0 && b.MaxTokens > 0 && used+cost > b.MaxTokens {
			break
		}
		selected = append(selected, s)
		used += cost
	}
	return selected
}

// AttachAssets returns copies of the selected chunks with scores set. The
// assets of a document are attached to the first selected chunk that
// resolves to it only; chunk-documents resolve to their parent.
func AttachAssets(snap *corpus.Snapshot, selected []Scored) []*corpus.Chunk {
	out := make([]*corpus.Chunk, 0, len(selected))
	seen := make(map[string]bool)

	for _, s := range selected {
		c := *s.Chunk
		c.Score = s.Score
		c.Images, c.Files = nil, nil

		if owner := assetOwner(snap, c.ParentID); owner != nil && !seen[owner.ID] {
			seen[owner.ID] = true
			c.Images = owner.Images
			c.Files = owner.Files
		}
		out = append(out, &c)
	}
	return out
}

func assetOwner(snap *corpus.Snapshot, id string) *corpus.Document {
	doc := snap.Document(id)
	if doc == nil {
		return nil
	}
	if !doc.HasAssets() && doc.Parent != "" {
		if parent := snap.Document(doc.Parent); parent != nil {
			return parent
		}
	}
	return doc
}

// FirstK returns the first k chunks in insertion order with zero scores.
func FirstK(chunks []*corpus.Chunk, k int) []Scored {
	n := min(k, len(chunks))
	out := make([]Scored, n)
	for i := range n {
		out[i] = Scored{Chunk: chunks[i]}
	}
	return out
}
