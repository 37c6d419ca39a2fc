// Package resolve maps asset markers emitted by a language model back to
// the binary assets of indexed documents.
package resolve

import (
	"context"
	"strings"

	"github.com/fwojciec/corpus"
)

var _ corpus.Resolver = (*Resolver)(nil)

// SnapshotSource provides consistent views of the indexed corpus.
type SnapshotSource interface {
	Snapshot() *corpus.Snapshot
}

// Resolver resolves markers against a document store.
type Resolver struct {
	source SnapshotSource
}

// NewResolver creates a Resolver over source.
func NewResolver(source SnapshotSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the assets marker refers to. It tries, in order: the
// document named by marker, its recorded parent, the marker with its
// fragment stripped, the marker as a crawled URL, and finally an embedded
// image whose source equals marker. A miss returns empty lists.
func (r *Resolver) Resolve(_ context.Context, marker string) corpus.ResolvedAssets {
	marker = strings.TrimSpace(marker)
	if marker == "" {
		return corpus.ResolvedAssets{}
	}
	snap := r.source.Snapshot()

	if res, ok := resolveID(snap, marker); ok {
		return res
	}
	if !strings.HasPrefix(marker, corpus.CrawledPrefix) && !strings.HasPrefix(marker, corpus.UploadedPrefix) {
		if res, ok := resolveID(snap, corpus.CrawledID(marker)); ok {
			return res
		}
	}
	for _, doc := range snap.Documents {
		for _, img := range doc.Images {
			if img.Source == marker {
				return corpus.ResolvedAssets{Images: []corpus.Asset{img}}
			}
		}
	}
	return corpus.ResolvedAssets{}
}

// resolveID resolves id directly, through a recorded parent, then by
// stripping fragments one at a time.
func resolveID(snap *corpus.Snapshot, id string) (corpus.ResolvedAssets, bool) {
	for {
		if doc := snap.Document(id); doc != nil {
			if doc.HasAssets() {
				return assetsOf(doc), true
			}
			if parent := snap.Document(doc.Parent); parent != nil && parent.HasAssets() {
				return assetsOf(parent), true
			}
		}
		base, ok := corpus.TrimFragment(id)
		if !ok {
			return corpus.ResolvedAssets{}, false
		}
		id = base
	}
}

func assetsOf(doc *corpus.Document) corpus.ResolvedAssets {
	return corpus.ResolvedAssets{
		Images: dedup(doc.Images),
		Files:  dedup(doc.Files),
	}
}

func dedup(assets []corpus.Asset) []corpus.Asset {
	if len(assets) < 2 {
		return assets
	}
	seen := make(map[corpus.AssetKey]bool, len(assets))
	out := make([]corpus.Asset, 0, len(assets))
	for _, a := range assets {
		if seen[a.Key()] {
			continue
		}
		seen[a.Key()] = true
		out = append(out, a)
	}
	return out
}
