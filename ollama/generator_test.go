package ollama_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/ollama"
	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatServer streams fragments as Ollama chat responses and records the
// decoded request.
func chatServer(t *testing.T, got *api.ChatRequest, fragments ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, f := range fragments {
			line, _ := json.Marshal(api.ChatResponse{
				Model:   "test",
				Message: api.Message{Role: "assistant", Content: f},
			})
			fmt.Fprintf(w, "%s\n", line)
		}
		fmt.Fprintln(w, `{"model":"test","message":{"role":"assistant","content":""},"done":true}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerator_Generate(t *testing.T) {
	t.Parallel()

	t.Run("streams fragments in order", func(t *testing.T) {
		t.Parallel()

		srv := chatServer(t, nil, "Hel", "lo", " world")
		g, err := ollama.NewGenerator(srv.URL, "test", srv.Client())
		require.NoError(t, err)

		var got []string
		err = g.Generate(context.Background(), []corpus.Message{{Role: corpus.RoleUser, Content: "hi"}}, func(f string) error {
			got = append(got, f)
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"Hel", "lo", " world"}, got)
	})

	t.Run("sends roles and images", func(t *testing.T) {
		t.Parallel()

		var req api.ChatRequest
		srv := chatServer(t, &req, "ok")
		g, err := ollama.NewGenerator(srv.URL, "llava", srv.Client())
		require.NoError(t, err)

		err = g.Generate(context.Background(), []corpus.Message{
			{Role: corpus.RoleSystem, Content: "be brief"},
			{Role: corpus.RoleUser, Content: "what is this?", Images: [][]byte{[]byte("png")}},
		}, func(string) error { return nil })

		require.NoError(t, err)
		assert.Equal(t, "llava", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		require.Len(t, req.Messages[1].Images, 1)
		assert.Equal(t, api.ImageData("png"), req.Messages[1].Images[0])
	})

	t.Run("stops when the callback fails", func(t *testing.T) {
		t.Parallel()

		srv := chatServer(t, nil, "a", "b", "c")
		g, err := ollama.NewGenerator(srv.URL, "test", srv.Client())
		require.NoError(t, err)

		var n int
		err = g.Generate(context.Background(), []corpus.Message{{Role: corpus.RoleUser, Content: "hi"}}, func(string) error {
			n++
			return fmt.Errorf("client gone")
		})

		require.Error(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("returns server errors", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"model \"missing\" not found"}`)
		}))
		t.Cleanup(srv.Close)
		g, err := ollama.NewGenerator(srv.URL, "missing", srv.Client())
		require.NoError(t, err)

		err = g.Generate(context.Background(), []corpus.Message{{Role: corpus.RoleUser, Content: "hi"}}, func(string) error { return nil })

		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "not found"))
	})
}

func TestNewGenerator(t *testing.T) {
	t.Parallel()

	g, err := ollama.NewGenerator("", "", nil)
	require.NoError(t, err)
	assert.Equal(t, ollama.DefaultModel, g.Model())

	_, err = ollama.NewGenerator("http://[::1", "m", nil)
	assert.Equal(t, corpus.EINVALID, corpus.ErrorCode(err))
}
