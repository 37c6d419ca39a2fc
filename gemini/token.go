package gemini

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/corpus"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

// DefaultTokenizerModel is a model known to the local tokenizer.
const DefaultTokenizerModel = "gemini-2.5-flash"

// maxCachedCounts bounds the memoized counts; the cache is reset when full.
const maxCachedCounts = 1 << 14

var _ corpus.TokenCounter = (*TokenCounter)(nil)

// TokenCounter counts tokens with the local Gemini tokenizer. Counts are
// memoized by text hash because the same chunks are measured on every
// query.
type TokenCounter struct {
	mu    sync.Mutex
	tok   *tokenizer.LocalTokenizer
	cache map[uint64]int
}

// NewTokenCounter creates a TokenCounter for model. An empty model selects
// DefaultTokenizerModel; models unknown to the local tokenizer are
// rejected.
func NewTokenCounter(model string) (*TokenCounter, error) {
	if model == "" {
		model = DefaultTokenizerModel
	}
	tok, err := tokenizer.NewLocalTokenizer(model)
	if err != nil {
		return nil, corpus.Errorf(corpus.EINVALID, "tokenizer for %q: %v", model, err)
	}
	return &TokenCounter{tok: tok, cache: make(map[uint64]int)}, nil
}

// CountTokens returns the number of tokens in text.
func (tc *TokenCounter) CountTokens(_ context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	key := xxhash.Sum64String(text)

	tc.mu.Lock()
	defer tc.mu.Unlock()

	if n, ok := tc.cache[key]; ok {
		return n, nil
	}

	result, err := tc.tok.CountTokens([]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil)
	if err != nil {
		return 0, err
	}
	n := int(result.TotalTokens)

	if len(tc.cache) >= maxCachedCounts {
		clear(tc.cache)
	}
	tc.cache[key] = n
	return n, nil
}
