package corpus

import "unicode/utf8"

// DefaultPreviewChars is the length of chunk text previews.
const DefaultPreviewChars = 160

// DocumentSummary describes a stored document for debug listings.
type DocumentSummary struct {
	ID          string `json:"docId"`
	ContentType string `json:"contentType"`
	TextLength  int    `json:"textLength"`
	Images      int    `json:"images"`
	Files       int    `json:"files"`
	Chunks      int    `json:"chunks"`
	Parent      string `json:"parent,omitempty"`
}

// ChunkPreview describes a stored chunk for debug listings.
type ChunkPreview struct {
	ID         string `json:"chunkId"`
	ParentID   string `json:"parentDocId"`
	Index      int    `json:"chunkIndex"`
	CharLength int    `json:"charLength"`
	Preview    string `json:"preview"`
}

// Summarize returns a summary of every document in s in insertion order.
func Summarize(s *Snapshot) []DocumentSummary {
	if s == nil {
		return nil
	}
	counts := make(map[string]int)
	for _, c := range s.Chunks {
		counts[c.ParentID]++
	}

	out := make([]DocumentSummary, 0, len(s.Documents))
	for _, d := range s.Documents {
		out = append(out, DocumentSummary{
			ID:          d.ID,
			ContentType: d.ContentType,
			TextLength:  utf8.RuneCountInString(d.Text),
			Images:      len(d.Images),
			Files:       len(d.Files),
			Chunks:      counts[d.ID],
			Parent:      d.Parent,
		})
	}
	return out
}

// PreviewChunks returns previews of the chunks in s, optionally limited to
// one parent document. A non-positive limit returns all matching chunks.
func PreviewChunks(s *Snapshot, parentID string, limit int) []ChunkPreview {
	if s == nil {
		return nil
	}
	var out []ChunkPreview
	for _, c := range s.Chunks {
		if parentID != "" && c.ParentID != parentID {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, ChunkPreview{
			ID:         c.ID,
			ParentID:   c.ParentID,
			Index:      c.Index,
			CharLength: c.CharLength,
			Preview:    Preview(c.Text, DefaultPreviewChars),
		})
	}
	return out
}

// Preview returns the first n runes of s, marking a cut with "...".
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
