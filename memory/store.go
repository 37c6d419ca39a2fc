// Package memory provides the in-process document store.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/fwojciec/corpus"
)

var _ corpus.Store = (*Store)(nil)

// Store holds documents, their chunks and per-term chunk frequencies.
//
// State is copy-on-write: every AddDocument publishes a new immutable
// corpus.Snapshot, so readers never observe a partially added document.
// Any number of readers may run alongside a single writer.
type Store struct {
	chunker corpus.Chunker

	mu   sync.RWMutex
	snap *corpus.Snapshot
}

// NewStore creates an empty store that derives chunks with chunker.
func NewStore(chunker corpus.Chunker) *Store {
	return &Store{
		chunker: chunker,
		snap:    corpus.NewSnapshot(nil, nil, map[string]int{}),
	}
}

// AddDocument adds doc, replacing any document with the same ID together
// with its chunks. Documents without text but with assets get a single
// empty chunk so their assets stay reachable.
//
// Chunk-documents (documents with a Parent) are stored but not chunked:
// their text is already indexed through the parent's chunks, whose IDs
// they share.
func (s *Store) AddDocument(_ context.Context, doc *corpus.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	d := *doc
	d.Meta = maps.Clone(doc.Meta)

	var chunks []*corpus.Chunk
	if d.Parent == "" {
		chunks = s.chunker.Chunk(d.Text, d.ID)
		if len(chunks) == 0 && d.HasAssets() {
			chunks = []*corpus.Chunk{{ID: corpus.ChunkID(d.ID, 0), ParentID: d.ID}}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.snap
	docFreq := maps.Clone(old.DocFreq)

	docs := make([]*corpus.Document, 0, len(old.Documents)+1)
	replaced := false
	for _, existing := range old.Documents {
		if existing.ID == d.ID {
			docs = append(docs, &d)
			replaced = true
			continue
		}
		docs = append(docs, existing)
	}
	if !replaced {
		docs = append(docs, &d)
	}

	all := make([]*corpus.Chunk, 0, len(old.Chunks)+len(chunks))
	for _, c := range old.Chunks {
		if c.ParentID == d.ID {
			removeTerms(docFreq, c.Text)
			continue
		}
		all = append(all, c)
	}
	for _, c := range chunks {
		addTerms(docFreq, c.Text)
		all = append(all, c)
	}

	s.snap = corpus.NewSnapshot(docs, all, docFreq)
	return nil
}

// FindDocumentByID retrieves a document by ID.
func (s *Store) FindDocumentByID(_ context.Context, id string) (*corpus.Document, error) {
	doc := s.Snapshot().Document(id)
	if doc == nil {
		return nil, corpus.Errorf(corpus.ENOTFOUND, "document %q not found", id)
	}
	return doc, nil
}

// Snapshot returns the current immutable view of the store.
func (s *Store) Snapshot() *corpus.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Len returns the number of documents.
func (s *Store) Len() int {
	return len(s.Snapshot().Documents)
}

// ChunksOf returns the chunks of the document with the given ID.
func (s *Store) ChunksOf(id string) []*corpus.Chunk {
	snap := s.Snapshot()
	return slices.DeleteFunc(slices.Clone(snap.Chunks), func(c *corpus.Chunk) bool {
		return c.ParentID != id
	})
}

func addTerms(docFreq map[string]int, text string) {
	for term := range corpus.TermFreq(text) {
		docFreq[term]++
	}
}

func removeTerms(docFreq map[string]int, text string) {
	for term := range corpus.TermFreq(text) {
		if docFreq[term] <= 1 {
			delete(docFreq, term)
			continue
		}
		docFreq[term]--
	}
}
