package ask

import (
	"bytes"
	"strings"

	"github.com/fwojciec/corpus"
)

// Image attachment limits for the user message.
const (
	DefaultMaxImages     = 8
	DefaultMinImageBytes = 2000
)

// SystemPrompt instructs the model how to ground answers and reference
// assets.
const SystemPrompt = `You are a helpful, grounded assistant. Stream your answer progressively.

Context & assets:
- You will receive a text context that lists one or more doc_ids.
- Some doc_ids include FILES and/or IMAGES that the user may have uploaded or were retrieved from the knowledge base.
- Only refer to assets using markers [[FILE:doc_id]] and [[IMAGE:doc_id]]. Do not invent doc_ids, filenames, or URLs.

Instructions:
1) Read and synthesize the provided context text. If images are attached, assume they relate to the context unless stated otherwise.
2) If images are attached, describe only what is visible and compare them when relevant.
3) When pointing users to assets, use [[FILE:doc_id]] or [[IMAGE:doc_id]] with doc_ids from the context only.
4) Ground your answer in the context. If the answer is not in the context and cannot be inferred from the images, say so and propose next steps.
5) Keep the answer concise, structured and directly responsive to the question.
6) Do not output raw base64 or any links other than markers.`

// Prompt is the input to message assembly.
type Prompt struct {
	Question string
	Contexts []*corpus.Chunk

	// Uploaded is the document created from the user's upload, if any.
	Uploaded *corpus.Document

	// UploadedImage is the raw uploaded image, if the upload was one.
	UploadedImage []byte
}

// UserPrompt renders the context blocks, question and answer cue.
func (p Prompt) UserPrompt() string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	sb.WriteString(corpus.FormatContext(p.Contexts))
	if p.Uploaded != nil && len(p.UploadedImage) > 0 {
		sb.WriteString("\nAttached image doc_id: " + p.Uploaded.ID + "\n")
	}
	sb.WriteString("\n\n")
	sb.WriteString("When referencing images or files in your answer, use markers like [[IMAGE:doc_id]] or [[FILE:doc_id]].\n")
	sb.WriteString("Only reference doc_ids that are present in the context.\n\n")
	sb.WriteString("Question:\n" + p.Question + "\n\n")
	sb.WriteString("Answer:")
	return sb.String()
}

// Images returns the image payloads to attach to the user message: the
// uploaded image first, then context images, skipping payloads smaller
// than minBytes and repeated assets, capped at maxImages.
func (p Prompt) Images(maxImages, minBytes int) [][]byte {
	var out [][]byte
	seen := make(map[corpus.AssetKey]bool)
	add := func(data []byte) {
		if len(out) < maxImages && len(data) >= minBytes {
			out = append(out, data)
		}
	}

	add(p.UploadedImage)
	for _, c := range p.Contexts {
		for _, img := range c.Images {
			if seen[img.Key()] || bytes.Equal(img.Content, p.UploadedImage) {
				continue
			}
			seen[img.Key()] = true
			add(img.Content)
		}
	}
	return out
}

// Messages returns the system and user messages for the model.
func (p Prompt) Messages() []corpus.Message {
	return []corpus.Message{
		{Role: corpus.RoleSystem, Content: SystemPrompt},
		{
			Role:    corpus.RoleUser,
			Content: p.UserPrompt(),
			Images:  p.Images(DefaultMaxImages, DefaultMinImageBytes),
		},
	}
}
