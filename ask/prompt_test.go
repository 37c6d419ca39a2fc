package ask_test

import (
	"testing"

	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/ask"
	"github.com/stretchr/testify/assert"
)

func TestPrompt_UserPrompt(t *testing.T) {
	t.Parallel()

	p := ask.Prompt{
		Question: "How do I reset it?",
		Contexts: []*corpus.Chunk{{
			ID:     "docs://a",
			Text:   "Hold the button.",
			Images: []corpus.Asset{{Content: []byte("x")}},
		}},
	}

	want := "Context:\n" +
		"[docs://a]\nHold the button.\nImages available under: docs://a\n" +
		"\n\n" +
		"When referencing images or files in your answer, use markers like [[IMAGE:doc_id]] or [[FILE:doc_id]].\n" +
		"Only reference doc_ids that are present in the context.\n\n" +
		"Question:\nHow do I reset it?\n\n" +
		"Answer:"
	assert.Equal(t, want, p.UserPrompt())
}

func TestPrompt_Images(t *testing.T) {
	t.Parallel()

	t.Run("skips small payloads and caps the count", func(t *testing.T) {
		t.Parallel()

		var imgs []corpus.Asset
		for i := range 5 {
			content := make([]byte, 10+i)
			imgs = append(imgs, corpus.Asset{Content: content, Source: string(rune('a' + i))})
		}
		imgs = append(imgs, corpus.Asset{Content: []byte("tiny"), Source: "z"})
		p := ask.Prompt{Contexts: []*corpus.Chunk{{Images: imgs}}}

		got := p.Images(3, 10)
		assert.Len(t, got, 3)
		for _, img := range got {
			assert.GreaterOrEqual(t, len(img), 10)
		}
	})

	t.Run("does not repeat the uploaded image from its context block", func(t *testing.T) {
		t.Parallel()

		upload := []byte("uploaded-image-bytes")
		p := ask.Prompt{
			UploadedImage: upload,
			Contexts: []*corpus.Chunk{{
				Images: []corpus.Asset{{Content: upload, Source: "uploaded://img-1-a.png"}},
			}},
		}

		assert.Equal(t, [][]byte{upload}, p.Images(8, 1))
	})
}
