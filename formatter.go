package corpus

import "strings"

// FormatContext formats retrieved chunks as model context. Each block is
// the chunk ID in brackets followed by its text and, when the chunk
// carries assets, lines naming the ID the assets are available under.
func FormatContext(chunks []*Chunk) string {
	if len(chunks) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString("[" + c.ID + "]\n")
		sb.WriteString(c.Text)
		sb.WriteString("\n")
		if len(c.Images) > 0 {
			sb.WriteString("Images available under: " + c.ID + "\n")
		}
		if len(c.Files) > 0 {
			sb.WriteString("Files available under: " + c.ID + "\n")
		}
	}
	return sb.String()
}
