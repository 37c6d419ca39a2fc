// Package ollama implements text generation with a local Ollama server.
package ollama

import (
	"context"
	"net/http"
	"net/url"

	"github.com/fwojciec/corpus"
	"github.com/ollama/ollama/api"
)

// Defaults for Generator.
const (
	DefaultHost  = "http://localhost:11434"
	DefaultModel = "llama3"
)

var _ corpus.Generator = (*Generator)(nil)

// Generator implements corpus.Generator using the Ollama chat API.
type Generator struct {
	client  *api.Client
	model   string
	options map[string]any
}

// NewGenerator creates a Generator talking to the server at host. An empty
// host selects DefaultHost and an empty model DefaultModel.
func NewGenerator(host, model string, httpClient *http.Client) (*Generator, error) {
	if host == "" {
		host = DefaultHost
	}
	if model == "" {
		model = DefaultModel
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, corpus.Errorf(corpus.EINVALID, "invalid ollama host %q: %v", host, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Generator{
		client:  api.NewClient(u, httpClient),
		model:   model,
		options: map[string]any{"temperature": 0.2},
	}, nil
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	return g.model
}

// Generate streams the chat response to messages through fn.
func (g *Generator) Generate(ctx context.Context, messages []corpus.Message, fn corpus.GenerateFunc) error {
	stream := true
	req := &api.ChatRequest{
		Model:    g.model,
		Messages: toMessages(messages),
		Stream:   &stream,
		Options:  g.options,
	}
	return g.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		if resp.Message.Content == "" {
			return nil
		}
		return fn(resp.Message.Content)
	})
}

func toMessages(messages []corpus.Message) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		msg := api.Message{Role: m.Role, Content: m.Content}
		for _, img := range m.Images {
			msg.Images = append(msg.Images, api.ImageData(img))
		}
		out = append(out, msg)
	}
	return out
}
