package rank

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/fwojciec/corpus"
)

var _ corpus.Ranker = (*Lexical)(nil)

// Lexical ranks chunks with a smoothed TF-IDF score:
//
//	score = sum over query terms w of qtf(w) * ctf(w) * (ln((N+1)/(df(w)+1)) + 1)
//
// where N is the number of chunks and df(w) the number of chunks
// containing w.
type Lexical struct {
	source SnapshotSource
	budget Budget
}

// NewLexical creates a lexical ranker over source.
func NewLexical(source SnapshotSource, budget Budget) *Lexical {
	return &Lexical{source: source, budget: budget}
}

// Retrieve returns up to k chunks ranked by lexical score. Chunks scoring
// zero are excluded; when nothing scores, the first k chunks in insertion
// order are returned instead.
func (r *Lexical) Retrieve(ctx context.Context, query string, k int) ([]*corpus.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = DefaultK
	}

	snap := r.source.Snapshot()
	if snap.TotalChunks() == 0 {
		return nil, nil
	}

	ranked := r.rank(snap, query)
	if len(ranked) == 0 {
		ranked = FirstK(snap.Chunks, k)
	}

	return AttachAssets(snap, r.budget.Select(ctx, ranked, k)), nil
}

func (r *Lexical) rank(snap *corpus.Snapshot, query string) []Scored {
	queryTF := corpus.TermFreq(query)
	if len(queryTF) == 0 {
		return nil
	}

	idf := make(map[string]float64, len(queryTF))
	n := float64(max(1, snap.TotalChunks()))
	for w := range queryTF {
		idf[w] = math.Log((n+1)/float64(snap.DocFreq[w]+1)) + 1
	}

	var ranked []Scored
	for _, c := range snap.Chunks {
		if s := Score(queryTF, corpus.TermFreq(c.Text), idf); s > 0 {
			ranked = append(ranked, Scored{Chunk: c, Score: s})
		}
	}

	slices.SortStableFunc(ranked, func(a, b Scored) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return ranked
}

// Score returns the lexical score of a chunk's term frequencies against
// the query's, given per-term inverse document frequencies.
func Score(queryTF, chunkTF map[string]int, idf map[string]float64) float64 {
	var score float64
	for w, qf := range queryTF {
		if cf := chunkTF[w]; cf > 0 {
			score += float64(qf*cf) * idf[w]
		}
	}
	return score
}
