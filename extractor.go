package corpus

import "strings"

// Extraction is the result of extracting content from raw bytes.
// A zero Extraction is the normal outcome for unparseable input.
type Extraction struct {
	Text   string
	Images []Asset
	Files  []Asset
}

// Empty reports whether nothing was extracted.
func (e *Extraction) Empty() bool {
	return e == nil || (e.Text == "" && len(e.Images) == 0 && len(e.Files) == 0)
}

// Merge appends the assets of other to e.
func (e *Extraction) Merge(other *Extraction) {
	if other == nil {
		return
	}
	e.Images = append(e.Images, other.Images...)
	e.Files = append(e.Files, other.Files...)
}

// Extractor extracts text and embedded assets from raw bytes.
type Extractor interface {
	// Extract dispatches on hint, a filename or MIME type.
	// It never fails: unparseable input yields an empty, non-nil result.
	Extract(data []byte, hint string) *Extraction
}

// Converter converts HTML to Markdown.
type Converter interface {
	// Convert transforms HTML content into Markdown.
	Convert(html string) (string, error)
}

// OCR recognizes text in images.
type OCR interface {
	Recognize(image []byte) (string, error)
}

// FileName returns the last path element of a filename or URL hint,
// without query or fragment.
func FileName(hint string) string {
	s := hint
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(strings.ReplaceAll(s, "\\", "/"), "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return s
}
