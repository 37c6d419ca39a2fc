package mock

import (
	"context"

	"github.com/fwojciec/corpus"
)

var _ corpus.AreaService = (*AreaService)(nil)

// AreaService is a mock implementation of corpus.AreaService.
type AreaService struct {
	CreateAreaFn     func(ctx context.Context, area *corpus.Area) error
	FindAreaByNameFn func(ctx context.Context, name string) (*corpus.Area, error)
	FindAreasFn      func(ctx context.Context) ([]*corpus.Area, error)
	UpdateAreaFn     func(ctx context.Context, name string, upd corpus.AreaUpdate) (*corpus.Area, error)
	DeleteAreaFn     func(ctx context.Context, name string) error
}

func (s *AreaService) CreateArea(ctx context.Context, area *corpus.Area) error {
	return s.CreateAreaFn(ctx, area)
}

func (s *AreaService) FindAreaByName(ctx context.Context, name string) (*corpus.Area, error) {
	return s.FindAreaByNameFn(ctx, name)
}

func (s *AreaService) FindAreas(ctx context.Context) ([]*corpus.Area, error) {
	return s.FindAreasFn(ctx)
}

func (s *AreaService) UpdateArea(ctx context.Context, name string, upd corpus.AreaUpdate) (*corpus.Area, error) {
	return s.UpdateAreaFn(ctx, name, upd)
}

func (s *AreaService) DeleteArea(ctx context.Context, name string) error {
	return s.DeleteAreaFn(ctx, name)
}

var _ corpus.SnapshotService = (*SnapshotService)(nil)

// SnapshotService is a mock implementation of corpus.SnapshotService.
type SnapshotService struct {
	SaveSnapshotFn func(ctx context.Context, docs []*corpus.Document) error
	LoadSnapshotFn func(ctx context.Context) ([]*corpus.Document, error)
}

func (s *SnapshotService) SaveSnapshot(ctx context.Context, docs []*corpus.Document) error {
	return s.SaveSnapshotFn(ctx, docs)
}

func (s *SnapshotService) LoadSnapshot(ctx context.Context) ([]*corpus.Document, error) {
	return s.LoadSnapshotFn(ctx)
}
