// Package gemini implements text generation and token counting with
// Google Gemini.
package gemini

import (
	"context"
	"net/http"

	"github.com/fwojciec/corpus"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// DefaultTemperature is the sampling temperature for answers.
const DefaultTemperature = 0.4

var _ corpus.Generator = (*Generator)(nil)

// Generator implements corpus.Generator using Google Gemini.
type Generator struct {
	client      *genai.Client
	model       string
	temperature float32
}

// Option configures a Generator.
type Option func(*Generator)

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(g *Generator) {
		g.temperature = t
	}
}

// NewGenerator creates a new Generator.
func NewGenerator(client *genai.Client, opts ...Option) *Generator {
	g := &Generator{
		client:      client,
		model:       DefaultModel,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	return g.model
}

// Generate streams the model response to messages through fn.
func (g *Generator) Generate(ctx context.Context, messages []corpus.Message, fn corpus.GenerateFunc) error {
	contents, config := BuildRequest(messages, g.temperature)
	if len(contents) == 0 {
		return corpus.Errorf(corpus.EINVALID, "at least one non-system message required")
	}

	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, config) {
		if err != nil {
			return err
		}
		if resp == nil {
			continue
		}
		if text := resp.Text(); text != "" {
			if err := fn(text); err != nil {
				return err
			}
		}
	}
	return nil
}

// BuildRequest converts messages to Gemini contents. System messages are
// joined into the system instruction; assistant messages use the model
// role. Images become inline data parts ahead of the message text.
func BuildRequest(messages []corpus.Message, temperature float32) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{Temperature: &temperature}

	var contents []*genai.Content
	for _, m := range messages {
		if m.Role == corpus.RoleSystem {
			if config.SystemInstruction == nil {
				config.SystemInstruction = &genai.Content{}
			}
			config.SystemInstruction.Parts = append(config.SystemInstruction.Parts, &genai.Part{Text: m.Content})
			continue
		}

		role := genai.RoleUser
		if m.Role == corpus.RoleAssistant {
			role = genai.RoleModel
		}
		var parts []*genai.Part
		for _, img := range m.Images {
			parts = append(parts, genai.NewPartFromBytes(img, http.DetectContentType(img)))
		}
		parts = append(parts, &genai.Part{Text: m.Content})
		contents = append(contents, &genai.Content{Role: string(role), Parts: parts})
	}
	return contents, config
}
