// Package bleve provides a full-text ranker backed by an in-memory bleve
// index.
package bleve

import (
	"context"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/rank"
)

var _ corpus.Ranker = (*Ranker)(nil)

// candidateFactor widens the search so budget selection has spare
// candidates when large chunks are skipped.
const candidateFactor = 4

// indexedChunk is the document stored in the index.
type indexedChunk struct {
	Text string `json:"text"`
}

// Ranker ranks chunks with bleve's scoring over an in-memory index of the
// current snapshot. The index is rebuilt lazily whenever the source
// publishes a new snapshot.
type Ranker struct {
	source rank.SnapshotSource
	budget rank.Budget

	mu     sync.Mutex
	snap   *corpus.Snapshot
	index  bleve.Index
	chunks map[string]*corpus.Chunk
}

// NewRanker creates a Ranker over source.
func NewRanker(source rank.SnapshotSource, budget rank.Budget) *Ranker {
	return &Ranker{source: source, budget: budget}
}

// Retrieve returns up to k chunks matching query. When nothing matches, the
// first k chunks in insertion order are returned.
func (r *Ranker) Retrieve(ctx context.Context, query string, k int) ([]*corpus.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = rank.DefaultK
	}

	snap := r.source.Snapshot()
	if snap.TotalChunks() == 0 {
		return nil, nil
	}

	ranked, err := r.search(snap, query, k*candidateFactor)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		ranked = rank.FirstK(snap.Chunks, k)
	}
	return rank.AttachAssets(snap, r.budget.Select(ctx, ranked, k)), nil
}

// Close releases the index.
func (r *Ranker) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index == nil {
		return nil
	}
	err := r.index.Close()
	r.index, r.snap, r.chunks = nil, nil, nil
	return err
}

func (r *Ranker) search(snap *corpus.Snapshot, query string, size int) ([]rank.Scored, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.sync(snap); err != nil {
		return nil, err
	}

	q := bleve.NewMatchQuery(query)
	q.SetField("text")
	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	res, err := r.index.Search(req)
	if err != nil {
		return nil, corpus.Errorf(corpus.EINTERNAL, "bleve search: %v", err)
	}

	ranked := make([]rank.Scored, 0, len(res.Hits))
	for _, hit := range res.Hits {
		c, ok := r.chunks[hit.ID]
		if !ok || hit.Score <= 0 {
			continue
		}
		ranked = append(ranked, rank.Scored{Chunk: c, Score: hit.Score})
	}
	return ranked, nil
}

// sync rebuilds the index when snap differs from the indexed snapshot.
func (r *Ranker) sync(snap *corpus.Snapshot) error {
	if r.index != nil && r.snap == snap {
		return nil
	}

	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return corpus.Errorf(corpus.EINTERNAL, "bleve index: %v", err)
	}
	batch := index.NewBatch()
	chunks := make(map[string]*corpus.Chunk, len(snap.Chunks))
	for _, c := range snap.Chunks {
		chunks[c.ID] = c
		if c.Text == "" {
			continue
		}
		if err := batch.Index(c.ID, indexedChunk{Text: c.Text}); err != nil {
			_ = index.Close()
			return corpus.Errorf(corpus.EINTERNAL, "bleve index %s: %v", c.ID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return corpus.Errorf(corpus.EINTERNAL, "bleve batch: %v", err)
	}

	if r.index != nil {
		_ = r.index.Close()
	}
	r.index, r.snap, r.chunks = index, snap, chunks
	return nil
}
