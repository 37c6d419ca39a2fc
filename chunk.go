package corpus

import (
	"context"
	"regexp"
	"strings"
)

// Chunk is a bounded contiguous slice of a Document's text and the unit of
// retrieval.
type Chunk struct {
	ID         string `json:"chunkId"`
	ParentID   string `json:"parentDocId"`
	Index      int    `json:"chunkIndex"`
	Text       string `json:"text"`
	CharLength int    `json:"charLength"`

	// Score is populated at query time only.
	Score float64 `json:"relevanceScore"`

	// Images and Files carry the parent's assets on the first chunk of
	// each parent in a result set and are empty otherwise.
	Images []Asset `json:"images,omitempty"`
	Files  []Asset `json:"files,omitempty"`
}

// HasAssets reports whether assets were attached to the chunk.
func (c *Chunk) HasAssets() bool {
	return len(c.Images) > 0 || len(c.Files) > 0
}

// Chunker splits document text into chunks.
type Chunker interface {
	// Chunk returns the chunks of text for the given document ID.
	// Empty or whitespace-only text yields no chunks.
	Chunk(text, docID string) []*Chunk
}

// Ranker retrieves the chunks most relevant to a query.
type Ranker interface {
	// Retrieve returns up to k chunks with Score populated, selected under
	// the ranker's token budget. Parent assets are attached to the first
	// chunk of each parent only.
	Retrieve(ctx context.Context, query string, k int) ([]*Chunk, error)
}

// TokenCounter counts tokens in text for a specific model.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}

var termRe = regexp.MustCompile(`[A-Za-z0-9_]+`)

// Terms returns the case-folded alphanumeric tokens of text in order.
func Terms(text string) []string {
	words := termRe.FindAllString(text, -1)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return words
}

// TermFreq returns the number of occurrences of each term in text.
func TermFreq(text string) map[string]int {
	tf := make(map[string]int)
	for _, w := range Terms(text) {
		tf[w]++
	}
	return tf
}
