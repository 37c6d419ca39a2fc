// Package goquery parses crawled HTML pages using
// github.com/PuerkitoBio/goquery.
package goquery

import (
	"bytes"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/corpus"
)

var _ corpus.PageParser = (*Parser)(nil)

// ContentSelector matches the elements whose text is kept.
const ContentSelector = "h1, h2, h3, h4, h5, h6, p, li, blockquote, figcaption, pre, code, td, th"

// FileExtensions are the linked document types downloaded with a page.
var FileExtensions = []string{".pdf", ".docx", ".pptx", ".xlsx", ".zip"}

var spaces = regexp.MustCompile(`\s+`)

// Parser extracts visible text, links, images and linked documents.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse parses html fetched from baseURL.
func (p *Parser) Parse(html []byte, baseURL string) (*corpus.Page, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, corpus.Errorf(corpus.EINVALID, "invalid base URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, corpus.Errorf(corpus.EINVALID, "failed to parse HTML: %v", err)
	}
	doc.Find("script, style, noscript, template").Remove()

	page := &corpus.Page{
		Title: collapse(doc.Find("title").First().Text()),
		Text:  visibleText(doc),
	}

	seenLinks := make(map[string]bool)
	seenFiles := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href == "" || isNonHTTPLink(href) {
			return
		}
		resolved := resolveURL(base, href)
		if resolved == "" {
			return
		}
		if !seenLinks[resolved] {
			seenLinks[resolved] = true
			page.Links = append(page.Links, resolved)
		}
		if isFileLink(resolved) && !seenFiles[resolved] {
			seenFiles[resolved] = true
			page.Files = append(page.Files, resolved)
		}
	})

	seenImages := make(map[string]bool)
	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		src := strings.TrimSpace(sel.AttrOr("src", ""))
		switch {
		case src == "":
			return
		case strings.HasPrefix(strings.ToLower(src), "data:image/"):
		default:
			if isNonHTTPLink(src) {
				return
			}
			ref, err := url.Parse(src)
			if err != nil {
				return
			}
			u := base.ResolveReference(ref)
			if u.Scheme != "http" && u.Scheme != "https" {
				return
			}
			u.Fragment = ""
			src = u.String()
		}
		if !seenImages[src] {
			seenImages[src] = true
			page.Images = append(page.Images, src)
		}
	})

	return page, nil
}

// visibleText joins the text of content elements, one block per
// element. Elements nested in another content element are covered by
// their ancestor. Pages without content elements fall back to the body.
func visibleText(doc *goquery.Document) string {
	var blocks []string
	doc.Find(ContentSelector).Each(func(_ int, sel *goquery.Selection) {
		if sel.ParentsFiltered(ContentSelector).Length() > 0 {
			return
		}
		if t := collapse(sel.Text()); t != "" {
			blocks = append(blocks, t)
		}
	})
	if len(blocks) == 0 {
		if t := collapse(doc.Find("body").Text()); t != "" {
			blocks = append(blocks, t)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func collapse(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// resolveURL resolves href against base and strips the fragment.
// Returns empty string for unparseable, non-HTTP or self-referential
// links.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""

	result := resolved.String()
	baseNoFragment := *base
	baseNoFragment.Fragment = ""
	if result == baseNoFragment.String() {
		return ""
	}
	return result
}

func isFileLink(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	for _, e := range FileExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// isNonHTTPLink checks if a href is a non-HTTP link that should be skipped.
func isNonHTTPLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}
