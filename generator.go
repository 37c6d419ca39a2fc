package corpus

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a chat conversation.
type Message struct {
	Role    string
	Content string

	// Images are raw image payloads attached to the message.
	Images [][]byte
}

// GenerateFunc receives generated text fragments in order.
// Returning an error stops generation.
type GenerateFunc func(fragment string) error

// Generator is a text-generation service.
type Generator interface {
	// Generate streams the response to messages through fn.
	Generate(ctx context.Context, messages []Message, fn GenerateFunc) error
}

// ResolvedAssets are the binary payloads a marker resolves to.
type ResolvedAssets struct {
	Images []Asset
	Files  []Asset
}

// Empty reports whether nothing was resolved.
func (r ResolvedAssets) Empty() bool {
	return len(r.Images) == 0 && len(r.Files) == 0
}

// Resolver maps document, chunk or embedded-asset IDs to assets.
type Resolver interface {
	// Resolve returns the assets for marker. A miss returns empty lists.
	Resolve(ctx context.Context, marker string) ResolvedAssets
}
