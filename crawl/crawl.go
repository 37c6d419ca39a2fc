// Package crawl provides bounded breadth-first crawling of a site.
// It coordinates fetching, HTML parsing, binary extraction and the
// splitting of large documents.
package crawl

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/bloom"
	"github.com/google/uuid"
)

// Crawl limits.
const (
	DefaultMaxPages       = 50
	DefaultMaxDepth       = 3
	DefaultSplitThreshold = 12000
)

// Crawler performs a bounded breadth-first traversal of the links reachable
// from a root URL, constrained to the root's registrable domain.
//
// Crawler is single-writer: one Crawl call owns its frontier and result.
// Concurrent Crawl calls must not share a store without external locking.
type Crawler struct {
	Fetcher   corpus.Fetcher
	Parser    corpus.PageParser
	Extractor corpus.Extractor

	// Meta extractors fill page metadata in order; later extractors only
	// set keys that are still missing.
	Meta []corpus.MetaExtractor

	// Sitemaps, if set, seeds the frontier at depth 1.
	Sitemaps corpus.SitemapService

	// RateLimiter, if set, is waited on before every fetch.
	RateLimiter corpus.DomainLimiter

	// Splitter cuts documents whose text exceeds SplitThreshold characters
	// into chunk-documents. Splitting is disabled when nil.
	Splitter       corpus.Chunker
	SplitThreshold int

	// MaxPages caps produced documents, chunk-documents included.
	// Non-positive selects DefaultMaxPages.
	MaxPages int

	// MaxDepth caps link depth; 0 crawls the root only and a negative
	// value selects DefaultMaxDepth.
	MaxDepth int

	// RetryDelays defaults to DefaultRetryDelays when nil.
	RetryDelays []time.Duration
	Logger      *slog.Logger
}

// Result holds the outcome of a crawl.
type Result struct {
	// Documents in the order they were produced.
	Documents []*corpus.Document

	Failed int
	Bytes  int

	// Rendered counts pages whose HTML was rendered by a browser.
	Rendered int
}

// ByID returns the documents keyed by ID.
func (r *Result) ByID() map[string]*corpus.Document {
	m := make(map[string]*corpus.Document, len(r.Documents))
	for _, doc := range r.Documents {
		m[doc.ID] = doc
	}
	return m
}

// ProgressEvent reports progress during a crawl.
type ProgressEvent struct {
	Type      ProgressType
	Completed int
	Queued    int
	URL       string
	Depth     int
	Rendered  bool
	Error     error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting crawl progress.
type ProgressFunc func(event ProgressEvent)

// crawlState is owned by a single Crawl call.
type crawlState struct {
	domain   string
	maxPages int
	maxDepth int
	frontier *Frontier
	visited  *bloom.Set

	// downloaded holds every image and binary file URL fetched so far,
	// whether linked from a page or popped from the frontier. files keeps
	// the binary responses so each is fetched once and can be attached
	// to any page that links it.
	downloaded *bloom.Set
	files      map[string]*corpus.Response

	result *Result
}

// full reports whether the page cap has been reached.
func (s *crawlState) full() bool {
	return len(s.result.Documents) >= s.maxPages
}

// Crawl traverses the site rooted at rootURL. Per-URL failures are logged
// and skipped; an unreachable root yields an empty result. On cancellation
// the documents produced so far are returned with a nil error.
func (c *Crawler) Crawl(ctx context.Context, rootURL string, progress ProgressFunc) (*Result, error) {
	root, err := url.Parse(rootURL)
	if err != nil || (root.Scheme != "http" && root.Scheme != "https") || root.Host == "" {
		return nil, corpus.Errorf(corpus.EINVALID, "invalid root URL %q", rootURL)
	}
	root.Fragment = ""

	maxPages := c.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	maxDepth := c.MaxDepth
	if maxDepth < 0 {
		maxDepth = DefaultMaxDepth
	}

	s := &crawlState{
		domain:     RegistrableDomain(root.Hostname()),
		maxPages:   maxPages,
		maxDepth:   maxDepth,
		frontier:   NewFrontier(uint(maxPages) * 8),
		visited:    bloom.NewSet(uint(maxPages), 0.01),
		downloaded: bloom.NewSet(uint(maxPages)*8, 0.01),
		files:      make(map[string]*corpus.Response),
		result:     &Result{},
	}
	s.frontier.Push(root.String(), 0)

	if progress != nil {
		progress(ProgressEvent{Type: ProgressStarted, URL: root.String(), Queued: 1})
	}

	if c.Sitemaps != nil && maxDepth >= 1 {
		c.seedFromSitemaps(ctx, s, root.String())
	}

	for !s.full() {
		if ctx.Err() != nil {
			break
		}
		entry, ok := s.frontier.Pop()
		if !ok {
			break
		}
		if s.visited.Has(entry.URL) || entry.Depth > s.maxDepth {
			continue
		}
		s.visited.Add(entry.URL)

		rendered, err := c.visit(ctx, s, entry)
		if err != nil {
			s.result.Failed++
			c.logger().Warn("crawl", "url", entry.URL, "depth", entry.Depth, "err", err)
			if progress != nil {
				progress(ProgressEvent{
					Type:      ProgressFailed,
					Completed: len(s.result.Documents),
					Queued:    s.frontier.Len(),
					URL:       entry.URL,
					Depth:     entry.Depth,
					Error:     err,
				})
			}
			continue
		}

		if progress != nil {
			progress(ProgressEvent{
				Type:      ProgressCompleted,
				Completed: len(s.result.Documents),
				Queued:    s.frontier.Len(),
				URL:       entry.URL,
				Depth:     entry.Depth,
				Rendered:  rendered,
			})
		}
	}

	if progress != nil {
		progress(ProgressEvent{Type: ProgressFinished, Completed: len(s.result.Documents)})
	}

	return s.result, nil
}

func (c *Crawler) seedFromSitemaps(ctx context.Context, s *crawlState, rootURL string) {
	urls, err := c.Sitemaps.DiscoverURLs(ctx, rootURL)
	if err != nil {
		c.logger().Warn("sitemap", "url", rootURL, "err", err)
		return
	}
	for _, u := range urls {
		c.enqueue(s, u, 1)
	}
}

// enqueue pushes link at depth if it is in scope, unseen, within the depth
// cap and the page budget.
func (c *Crawler) enqueue(s *crawlState, link string, depth int) {
	if depth > s.maxDepth {
		return
	}
	if len(s.result.Documents)+s.frontier.Len() >= s.maxPages {
		return
	}
	if s.visited.Has(link) || !InScope(link, s.domain) {
		return
	}
	s.frontier.Push(link, depth)
}

// visit fetches and processes one frontier entry and reports whether the
// page was rendered by a browser. Panics raised by parsers are converted
// to errors so one bad page cannot abort the crawl.
func (c *Crawler) visit(ctx context.Context, s *crawlState, entry corpus.FrontierEntry) (rendered bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processing %s: %v", entry.URL, r)
		}
	}()

	resp, ok := s.files[entry.URL]
	if !ok {
		resp, err = c.fetch(ctx, entry.URL)
		if err != nil {
			return false, err
		}
	}
	if resp.Rendered {
		s.result.Rendered++
	}

	if resp.URL != "" && resp.URL != entry.URL {
		// A redirect onto a page already crawled is not a new document.
		if s.visited.Has(resp.URL) {
			return resp.Rendered, nil
		}
		s.visited.Add(resp.URL)
	}

	if !resp.IsHTML() {
		s.downloaded.Add(entry.URL)
		s.files[entry.URL] = resp
		c.add(s, c.binaryDocument(entry.URL, resp))
		return false, nil
	}

	doc, links, err := c.htmlDocument(ctx, s, entry, resp)
	if err != nil {
		return resp.Rendered, err
	}
	if resp.Rendered {
		doc.Meta[corpus.MetaRendered] = "true"
	}
	c.add(s, doc)
	for _, link := range links {
		c.enqueue(s, link, entry.Depth+1)
	}
	return resp.Rendered, nil
}

// binaryDocument records a non-HTML resource. The document is the file:
// its Files list holds the raw bytes.
func (c *Crawler) binaryDocument(pageURL string, resp *corpus.Response) *corpus.Document {
	ext := c.Extractor.Extract(resp.Body, pageURL)
	return &corpus.Document{
		ID:          corpus.CrawledID(pageURL),
		SourceURL:   pageURL,
		ContentType: resp.ContentType,
		Text:        ext.Text,
		Images:      ext.Images,
		Files:       []corpus.Asset{fileAsset(pageURL, resp)},
		Meta: map[string]string{
			corpus.MetaStatus:      strconv.Itoa(200),
			corpus.MetaFilename:    corpus.FileName(pageURL),
			corpus.MetaContentHash: ContentHash(resp.Body),
		},
	}
}

// htmlDocument builds the document for an HTML page, downloading its
// images and linked files. It returns the page's links for enqueueing.
func (c *Crawler) htmlDocument(ctx context.Context, s *crawlState, entry corpus.FrontierEntry, resp *corpus.Response) (*corpus.Document, []string, error) {
	base := resp.URL
	if base == "" {
		base = entry.URL
	}
	page, err := c.Parser.Parse(resp.Body, base)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", entry.URL, err)
	}

	doc := &corpus.Document{
		ID:          corpus.CrawledID(entry.URL),
		SourceURL:   entry.URL,
		ContentType: resp.ContentType,
		Text:        page.Text,
		Meta: map[string]string{
			corpus.MetaStatus: strconv.Itoa(200),
		},
	}
	if page.Title != "" {
		doc.Meta[corpus.MetaTitle] = page.Title
	}
	c.fillMeta(doc.Meta, resp.Body, base)

	for _, src := range page.Images {
		if strings.HasPrefix(src, "data:") {
			if img, ok := dataImage(src); ok {
				doc.Images = append(doc.Images, img)
			}
			continue
		}
		if !s.downloaded.Add(src) {
			continue
		}
		img, err := c.fetch(ctx, src)
		if err != nil {
			c.logger().Debug("image", "url", src, "err", err)
			continue
		}
		if len(img.Body) == 0 {
			continue
		}
		doc.Images = append(doc.Images, fileAsset(src, img))
	}

	for _, link := range page.Files {
		file, ok := s.files[link]
		if !ok {
			if !s.downloaded.Add(link) {
				continue
			}
			var err error
			file, err = c.fetch(ctx, link)
			if err != nil {
				c.logger().Debug("file", "url", link, "err", err)
				continue
			}
			s.files[link] = file
		}
		if len(file.Body) == 0 || file.IsHTML() {
			continue
		}
		doc.Files = append(doc.Files, fileAsset(link, file))

		ext := c.Extractor.Extract(file.Body, link)
		if ext.Text != "" {
			doc.Text += "\n\n" + ext.Text
		}
		doc.Images = append(doc.Images, ext.Images...)
	}
	doc.Meta[corpus.MetaContentHash] = ContentHash([]byte(doc.Text))

	return doc, page.Links, nil
}

// fillMeta merges metadata from the configured extractors without
// overwriting keys already set.
func (c *Crawler) fillMeta(meta map[string]string, html []byte, pageURL string) {
	for _, m := range c.Meta {
		got, err := m.ExtractMeta(html, pageURL)
		if err != nil {
			continue
		}
		for k, v := range got {
			if _, ok := meta[k]; !ok && v != "" {
				meta[k] = v
			}
		}
	}
}

// add records doc and, when its text is large, the chunk-documents cut
// from it while the page budget allows.
func (c *Crawler) add(s *crawlState, doc *corpus.Document) {
	s.result.Documents = append(s.result.Documents, doc)
	s.result.Bytes += len(doc.Text)

	threshold := c.SplitThreshold
	if threshold <= 0 {
		threshold = DefaultSplitThreshold
	}
	if c.Splitter == nil || utf8.RuneCountInString(doc.Text) <= threshold {
		return
	}

	chunks := c.Splitter.Chunk(doc.Text, doc.ID)
	if len(chunks) < 2 {
		return
	}
	for i, ch := range chunks {
		if s.full() {
			return
		}
		meta := maps.Clone(doc.Meta)
		delete(meta, corpus.MetaContentHash)
		s.result.Documents = append(s.result.Documents, &corpus.Document{
			ID:          corpus.ChunkID(doc.ID, i),
			SourceURL:   doc.SourceURL,
			ContentType: doc.ContentType,
			Text:        ch.Text,
			Meta:        meta,
			Parent:      doc.ID,
		})
	}
}

func (c *Crawler) fetch(ctx context.Context, rawURL string) (*corpus.Response, error) {
	if c.RateLimiter != nil {
		if u, err := url.Parse(rawURL); err == nil {
			if err := c.RateLimiter.Wait(ctx, u.Host); err != nil {
				return nil, err
			}
		}
	}
	delays := c.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}
	return FetchWithRetry(ctx, c.Fetcher, rawURL, delays, c.Logger)
}

func (c *Crawler) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// fileAsset wraps a fetched resource as an asset named after its URL.
func fileAsset(rawURL string, resp *corpus.Response) corpus.Asset {
	mimeType := resp.ContentType
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return corpus.Asset{
		Content:  resp.Body,
		MIME:     mimeType,
		Source:   rawURL,
		Filename: corpus.FileName(rawURL),
	}
}

// dataImage decodes an inline data: image URI and names it with a random
// synthetic filename.
func dataImage(uri string) (corpus.Asset, bool) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return corpus.Asset{}, false
	}
	params := strings.Split(header, ";")
	mimeType := strings.ToLower(strings.TrimSpace(params[0]))
	if !strings.HasPrefix(mimeType, "image/") {
		return corpus.Asset{}, false
	}

	var data []byte
	if params[len(params)-1] == "base64" {
		var err error
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
				return corpus.Asset{}, false
			}
		}
	} else {
		s, err := url.PathUnescape(payload)
		if err != nil {
			return corpus.Asset{}, false
		}
		data = []byte(s)
	}
	if len(data) == 0 {
		return corpus.Asset{}, false
	}

	name := "img-" + strings.ReplaceAll(uuid.NewString(), "-", "") + "." + imageExt(mimeType)
	return corpus.Asset{
		Content:  data,
		MIME:     mimeType,
		Source:   "inline:" + name,
		Filename: name,
	}, true
}

func imageExt(mimeType string) string {
	sub := strings.TrimPrefix(mimeType, "image/")
	switch sub {
	case "jpeg", "pjpeg":
		return "jpg"
	case "svg+xml":
		return "svg"
	case "x-icon", "vnd.microsoft.icon":
		return "ico"
	}
	return sub
}
