package corpus

import (
	"mime"
	"strings"
)

// Page is the parsed form of an HTML document.
type Page struct {
	Title string

	// Text is the visible text of content-bearing elements with
	// whitespace collapsed.
	Text string

	// Links are absolute, fragment-free hyperlink targets in page order.
	Links []string

	// Images are absolute image URLs or data URIs in page order.
	Images []string

	// Files are absolute URLs of linked documents with an allowlisted
	// extension.
	Files []string
}

// PageParser parses HTML pages.
type PageParser interface {
	Parse(html []byte, baseURL string) (*Page, error)
}

// MetaExtractor extracts descriptive metadata (title, description, site
// name) from an HTML page.
type MetaExtractor interface {
	ExtractMeta(html []byte, pageURL string) (map[string]string, error)
}

func isHTMLType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
