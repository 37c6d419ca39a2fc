package resolve

import (
	"context"

	"github.com/fwojciec/corpus"
)

// Emission is an asset to send for a marker.
type Emission struct {
	Marker corpus.Marker
	Asset  corpus.Asset
}

// Session resolves the markers of one model response, emitting each
// underlying asset at most once. A Session is not safe for concurrent use.
type Session struct {
	resolver corpus.Resolver

	processed map[corpus.Marker]bool
	emitted   map[emittedKey]bool
	assets    map[assetKindKey]bool
}

type emittedKey struct {
	id     string
	kind   corpus.MarkerKind
	source string
	size   int
}

type assetKindKey struct {
	kind corpus.MarkerKind
	key  corpus.AssetKey
}

// NewSession creates a Session that resolves through resolver.
func NewSession(resolver corpus.Resolver) *Session {
	return &Session{
		resolver:  resolver,
		processed: make(map[corpus.Marker]bool),
		emitted:   make(map[emittedKey]bool),
		assets:    make(map[assetKindKey]bool),
	}
}

// Resolve returns the not yet emitted assets of marker's kind. Repeated
// markers and distinct markers resolving to an already emitted asset
// yield nothing.
func (s *Session) Resolve(ctx context.Context, m corpus.Marker) []Emission {
	if s.processed[m] {
		return nil
	}
	s.processed[m] = true

	res := s.resolver.Resolve(ctx, m.ID)
	candidates := res.Images
	if m.Kind == corpus.MarkerFile {
		candidates = res.Files
	}

	var out []Emission
	for _, a := range candidates {
		ek := emittedKey{id: m.ID, kind: m.Kind, source: a.Source, size: a.Size()}
		ak := assetKindKey{kind: m.Kind, key: a.Key()}
		if s.emitted[ek] || s.assets[ak] {
			continue
		}
		s.emitted[ek] = true
		s.assets[ak] = true
		out = append(out, Emission{Marker: m, Asset: a})
	}
	return out
}

// ResolveAll resolves markers in order.
func (s *Session) ResolveAll(ctx context.Context, markers []corpus.Marker) []Emission {
	var out []Emission
	for _, m := range markers {
		out = append(out, s.Resolve(ctx, m)...)
	}
	return out
}
