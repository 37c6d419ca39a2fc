package corpus

import (
	"context"
	"fmt"
)

// Response is a successfully fetched resource.
type Response struct {
	// URL is the final URL after redirects.
	URL         string
	ContentType string
	Body        []byte

	// Rendered is set when Body is a DOM rendered by a browser rather
	// than the bytes served.
	Rendered bool
}

// IsHTML reports whether the response carries an HTML document.
func (r *Response) IsHTML() bool {
	return isHTMLType(r.ContentType)
}

// Fetcher retrieves resources over the network.
type Fetcher interface {
	// Fetch performs a GET for url bounded by the fetcher's timeout.
	// A non-200 status is returned as an error.
	Fetch(ctx context.Context, url string) (*Response, error)

	// Close releases fetcher resources.
	Close() error
}

// StatusError reports a response with a status other than 200 OK.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// SitemapService discovers page URLs listed in a site's sitemaps.
type SitemapService interface {
	// DiscoverURLs returns the URLs under baseURL listed in the sitemaps
	// announced by robots.txt or found at /sitemap.xml. Returns an empty
	// slice if the site has no sitemap.
	DiscoverURLs(ctx context.Context, baseURL string) ([]string, error)
}
