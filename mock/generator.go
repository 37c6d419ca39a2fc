package mock

import (
	"context"

	"github.com/fwojciec/corpus"
)

var _ corpus.Generator = (*Generator)(nil)

// Generator is a mock implementation of corpus.Generator.
type Generator struct {
	GenerateFn func(ctx context.Context, messages []corpus.Message, fn corpus.GenerateFunc) error
}

func (g *Generator) Generate(ctx context.Context, messages []corpus.Message, fn corpus.GenerateFunc) error {
	return g.GenerateFn(ctx, messages, fn)
}

// Reply returns a Generator that streams fragments in order.
func Reply(fragments ...string) *Generator {
	return &Generator{
		GenerateFn: func(_ context.Context, _ []corpus.Message, fn corpus.GenerateFunc) error {
			for _, f := range fragments {
				if err := fn(f); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

var _ corpus.TokenCounter = (*TokenCounter)(nil)

// TokenCounter is a mock implementation of corpus.TokenCounter.
type TokenCounter struct {
	CountTokensFn func(ctx context.Context, text string) (int, error)
}

func (c *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	return c.CountTokensFn(ctx, text)
}

var _ corpus.Ranker = (*Ranker)(nil)

// Ranker is a mock implementation of corpus.Ranker.
type Ranker struct {
	RetrieveFn func(ctx context.Context, query string, k int) ([]*corpus.Chunk, error)
}

func (r *Ranker) Retrieve(ctx context.Context, query string, k int) ([]*corpus.Chunk, error) {
	return r.RetrieveFn(ctx, query, k)
}

var _ corpus.Resolver = (*Resolver)(nil)

// Resolver is a mock implementation of corpus.Resolver.
type Resolver struct {
	ResolveFn func(ctx context.Context, marker string) corpus.ResolvedAssets
}

func (r *Resolver) Resolve(ctx context.Context, marker string) corpus.ResolvedAssets {
	return r.ResolveFn(ctx, marker)
}
