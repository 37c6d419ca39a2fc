package rod_test

import (
	"context"
	"testing"

	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/mock"
	"github.com/fwojciec/corpus/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("passes binary resources through without a browser", func(t *testing.T) {
		t.Parallel()

		png := []byte("\x89PNG\r\n\x1a\nlogo")
		plain := &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (*corpus.Response, error) {
				return &corpus.Response{URL: url, ContentType: "image/png", Body: png}, nil
			},
			CloseFn: func() error { return nil },
		}
		fetcher := rod.NewFetcher(plain)
		defer fetcher.Close()

		resp, err := fetcher.Fetch(context.Background(), "https://example.com/logo.png")

		require.NoError(t, err)
		assert.Equal(t, png, resp.Body)
		assert.False(t, resp.Rendered)
		assert.Zero(t, fetcher.Rendered())
		assert.Zero(t, fetcher.LauncherPID())
	})

	t.Run("returns plain fetch errors", func(t *testing.T) {
		t.Parallel()

		plain := &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (*corpus.Response, error) {
				return nil, &corpus.StatusError{URL: url, StatusCode: 404}
			},
			CloseFn: func() error { return nil },
		}
		fetcher := rod.NewFetcher(plain)
		defer fetcher.Close()

		_, err := fetcher.Fetch(context.Background(), "https://example.com/missing")

		var status *corpus.StatusError
		require.ErrorAs(t, err, &status)
		assert.Equal(t, 404, status.StatusCode)
	})
}

func TestFetcher_Close(t *testing.T) {
	t.Parallel()

	var closed int
	plain := &mock.Fetcher{
		FetchFn: func(context.Context, string) (*corpus.Response, error) {
			t.Fatal("closed fetcher must not fetch")
			return nil, nil
		},
		CloseFn: func() error {
			closed++
			return nil
		},
	}
	fetcher := rod.NewFetcher(plain)

	require.NoError(t, fetcher.Close())
	require.NoError(t, fetcher.Close())
	assert.Equal(t, 1, closed)

	_, err := fetcher.Fetch(context.Background(), "https://example.com")
	assert.Equal(t, corpus.EINVALID, corpus.ErrorCode(err))
}
