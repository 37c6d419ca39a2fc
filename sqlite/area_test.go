package sqlite_test

import (
	"context"
	"testing"

	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAreaService_CreateArea(t *testing.T) {
	t.Parallel()

	t.Run("creates area with timestamps", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewAreaService(setupTestDB(t))
		area := &corpus.Area{Name: "hr", DisplayName: "Human Resources", URL: "https://hr.example.com"}

		require.NoError(t, svc.CreateArea(context.Background(), area))

		assert.False(t, area.CreatedAt.IsZero())
		assert.False(t, area.UpdatedAt.IsZero())
	})

	t.Run("returns conflict for duplicate name", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewAreaService(setupTestDB(t))
		ctx := context.Background()
		require.NoError(t, svc.CreateArea(ctx, &corpus.Area{Name: "hr", URL: "https://hr.example.com"}))

		err := svc.CreateArea(ctx, &corpus.Area{Name: "hr", URL: "https://other.example.com"})
		assert.Equal(t, corpus.ECONFLICT, corpus.ErrorCode(err))
	})

	t.Run("returns error for invalid area", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewAreaService(setupTestDB(t))

		err := svc.CreateArea(context.Background(), &corpus.Area{Name: "hr"})
		assert.Equal(t, corpus.EINVALID, corpus.ErrorCode(err))
	})
}

func TestAreaService_FindAreas(t *testing.T) {
	t.Parallel()

	t.Run("returns areas ordered by name", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewAreaService(setupTestDB(t))
		ctx := context.Background()
		for _, name := range []string{"sales", "hr", "it"} {
			require.NoError(t, svc.CreateArea(ctx, &corpus.Area{Name: name, URL: "https://" + name + ".example.com"}))
		}

		areas, err := svc.FindAreas(ctx)
		require.NoError(t, err)
		require.Len(t, areas, 3)
		assert.Equal(t, "hr", areas[0].Name)
		assert.Equal(t, "it", areas[1].Name)
		assert.Equal(t, "sales", areas[2].Name)
	})

	t.Run("finds area by name", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewAreaService(setupTestDB(t))
		ctx := context.Background()
		require.NoError(t, svc.CreateArea(ctx, &corpus.Area{Name: "hr", Description: "policies", URL: "https://hr.example.com"}))

		area, err := svc.FindAreaByName(ctx, "hr")
		require.NoError(t, err)
		assert.Equal(t, "policies", area.Description)
		assert.Equal(t, "https://hr.example.com", area.URL)
	})

	t.Run("returns not found for unknown name", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewAreaService(setupTestDB(t))

		_, err := svc.FindAreaByName(context.Background(), "missing")
		assert.Equal(t, corpus.ENOTFOUND, corpus.ErrorCode(err))
	})
}

func TestAreaService_UpdateArea(t *testing.T) {
	t.Parallel()

	t.Run("applies partial updates", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewAreaService(setupTestDB(t))
		ctx := context.Background()
		require.NoError(t, svc.CreateArea(ctx, &corpus.Area{Name: "hr", DisplayName: "HR", URL: "https://hr.example.com"}))

		url := "https://people.example.com"
		area, err := svc.UpdateArea(ctx, "hr", corpus.AreaUpdate{URL: &url})
		require.NoError(t, err)
		assert.Equal(t, url, area.URL)
		assert.Equal(t, "HR", area.DisplayName)

		found, err := svc.FindAreaByName(ctx, "hr")
		require.NoError(t, err)
		assert.Equal(t, url, found.URL)
	})

	t.Run("rejects clearing the url", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewAreaService(setupTestDB(t))
		ctx := context.Background()
		require.NoError(t, svc.CreateArea(ctx, &corpus.Area{Name: "hr", URL: "https://hr.example.com"}))

		empty := ""
		_, err := svc.UpdateArea(ctx, "hr", corpus.AreaUpdate{URL: &empty})
		assert.Equal(t, corpus.EINVALID, corpus.ErrorCode(err))
	})

	t.Run("returns not found for unknown name", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewAreaService(setupTestDB(t))

		_, err := svc.UpdateArea(context.Background(), "missing", corpus.AreaUpdate{})
		assert.Equal(t, corpus.ENOTFOUND, corpus.ErrorCode(err))
	})
}

func TestAreaService_DeleteArea(t *testing.T) {
	t.Parallel()

	t.Run("removes the area", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewAreaService(setupTestDB(t))
		ctx := context.Background()
		require.NoError(t, svc.CreateArea(ctx, &corpus.Area{Name: "hr", URL: "https://hr.example.com"}))

		require.NoError(t, svc.DeleteArea(ctx, "hr"))

		_, err := svc.FindAreaByName(ctx, "hr")
		assert.Equal(t, corpus.ENOTFOUND, corpus.ErrorCode(err))
	})

	t.Run("returns not found for unknown name", func(t *testing.T) {
		t.Parallel()

		svc := sqlite.NewAreaService(setupTestDB(t))

		err := svc.DeleteArea(context.Background(), "missing")
		assert.Equal(t, corpus.ENOTFOUND, corpus.ErrorCode(err))
	})
}
