//go:build integration

package rod_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	corpushttp "github.com/fwojciec/corpus/http"
	"github.com/fwojciec/corpus/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Render(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Test Page</title></head>
<body>
<div id="content">Loading...</div>
<script>document.getElementById('content').textContent = 'JavaScript Rendered';</script>
</body>
</html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	t.Run("returns rendered html", func(t *testing.T) {
		t.Parallel()

		fetcher := rod.NewFetcher(corpushttp.NewFetcher(), rod.WithRenderTimeout(10*time.Second))
		defer fetcher.Close()

		resp, err := fetcher.Fetch(context.Background(), srv.URL+"/")

		require.NoError(t, err)
		assert.True(t, resp.IsHTML())
		assert.True(t, resp.Rendered)
		assert.Contains(t, string(resp.Body), "JavaScript Rendered")
		assert.NotContains(t, string(resp.Body), "Loading...")
		assert.Equal(t, 1, fetcher.Rendered())
	})

	t.Run("relaunches the browser after the recycle threshold", func(t *testing.T) {
		t.Parallel()

		fetcher := rod.NewFetcher(corpushttp.NewFetcher(), rod.WithRecycleAfter(2))
		defer fetcher.Close()

		_, err := fetcher.Fetch(context.Background(), srv.URL+"/")
		require.NoError(t, err)
		first := fetcher.LauncherPID()
		require.NotZero(t, first)

		_, err = fetcher.Fetch(context.Background(), srv.URL+"/")
		require.NoError(t, err)
		assert.Equal(t, first, fetcher.LauncherPID())

		_, err = fetcher.Fetch(context.Background(), srv.URL+"/")
		require.NoError(t, err)
		assert.NotEqual(t, first, fetcher.LauncherPID())
		assert.Equal(t, 3, fetcher.Rendered())
	})

	t.Run("close stops the browser", func(t *testing.T) {
		t.Parallel()

		fetcher := rod.NewFetcher(corpushttp.NewFetcher())
		_, err := fetcher.Fetch(context.Background(), srv.URL+"/")
		require.NoError(t, err)

		require.NoError(t, fetcher.Close())
		assert.Zero(t, fetcher.LauncherPID())
	})
}
