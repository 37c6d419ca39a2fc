package crawl_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/chunk"
	"github.com/fwojciec/corpus/crawl"
	"github.com/fwojciec/corpus/extract"
	"github.com/fwojciec/corpus/goquery"
	corpushttp "github.com/fwojciec/corpus/http"
	"github.com/fwojciec/corpus/internal/pdftest"
	"github.com/fwojciec/corpus/mock"
	"github.com/fwojciec/corpus/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCrawler returns a crawler over the real fetcher, parser and
// extractor with retries disabled.
func newCrawler(maxPages, maxDepth int) *crawl.Crawler {
	return &crawl.Crawler{
		Fetcher:     corpushttp.NewFetcher(corpushttp.WithTimeout(5 * time.Second)),
		Parser:      goquery.NewParser(),
		Extractor:   extract.NewRegistry(extract.WithParser(extract.FormatPDF, pdf.NewParser(nil))),
		MaxPages:    maxPages,
		MaxDepth:    maxDepth,
		RetryDelays: []time.Duration{},
	}
}

func serveHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, body)
}

// pages returns a mock fetcher serving HTML bodies by URL and recording
// every fetched URL. Unknown URLs fail with 404.
func pages(bodies map[string]string) (*mock.Fetcher, func() []string) {
	var (
		mu      sync.Mutex
		fetched []string
	)
	f := &mock.Fetcher{
		FetchFn: func(_ context.Context, url string) (*corpus.Response, error) {
			mu.Lock()
			fetched = append(fetched, url)
			mu.Unlock()
			body, ok := bodies[url]
			if !ok {
				return nil, &corpus.StatusError{URL: url, StatusCode: http.StatusNotFound}
			}
			return &corpus.Response{URL: url, ContentType: "text/html", Body: []byte(body)}, nil
		},
	}
	return f, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), fetched...)
	}
}

func TestCrawler_Crawl(t *testing.T) {
	t.Parallel()

	t.Run("single page yields one document", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			serveHTML(w, `<html><head><title>Greeting</title></head><body><p>Hello world</p></body></html>`)
		}))
		defer srv.Close()

		result, err := newCrawler(10, 2).Crawl(context.Background(), srv.URL+"/", nil)

		require.NoError(t, err)
		require.Len(t, result.Documents, 1)
		doc := result.Documents[0]
		assert.Equal(t, "docs://"+srv.URL+"/", doc.ID)
		assert.Equal(t, "Hello world", doc.Text)
		assert.Empty(t, doc.Images)
		assert.Empty(t, doc.Files)
		assert.Equal(t, "Greeting", doc.Meta[corpus.MetaTitle])
		assert.Equal(t, "200", doc.Meta[corpus.MetaStatus])
		assert.NotEmpty(t, doc.Meta[corpus.MetaContentHash])
	})

	t.Run("linked pdf is attached with its text and images", func(t *testing.T) {
		t.Parallel()

		report := pdftest.Build(
			pdftest.Page{Lines: []string{"Annual report", "Figure caption"}, JPEG: pdftest.JPEG()},
			pdftest.Page{Lines: []string{"Second page"}},
		)
		var pdfHits atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			serveHTML(w, `<html><body><p>See the report.</p><a href="report.pdf">report</a></body></html>`)
		})
		mux.HandleFunc("/report.pdf", func(w http.ResponseWriter, _ *http.Request) {
			pdfHits.Add(1)
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(report)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		result, err := newCrawler(10, 1).Crawl(context.Background(), srv.URL+"/", nil)

		require.NoError(t, err)
		docs := result.ByID()
		page := docs["docs://"+srv.URL+"/"]
		require.NotNil(t, page)
		require.Len(t, page.Files, 1)
		assert.Equal(t, report, page.Files[0].Content)
		assert.Equal(t, "application/pdf", page.Files[0].MIME)
		assert.Equal(t, "report.pdf", page.Files[0].Filename)
		assert.True(t, strings.HasPrefix(page.Text, "See the report.\n\n--- page 1 ---"))
		assert.Contains(t, page.Text, "[[IMAGE:")
		require.Len(t, page.Images, 1)
		assert.Contains(t, page.Text, corpus.ImageMarker(page.Images[0].Source))

		binary := docs["docs://"+srv.URL+"/report.pdf"]
		require.NotNil(t, binary)
		require.Len(t, binary.Files, 1)
		assert.Equal(t, report, binary.Files[0].Content)
		assert.Len(t, binary.Images, 1)
		assert.Contains(t, binary.Text, "Second page")
		assert.Equal(t, int32(1), pdfHits.Load(), "linked file must be fetched once per crawl")
	})

	t.Run("never exceeds the page cap", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var links strings.Builder
			for i := range 10 {
				fmt.Fprintf(&links, `<a href="%s/%d">x</a>`, strings.TrimSuffix(r.URL.Path, "/"), i)
			}
			serveHTML(w, "<html><body><p>"+r.URL.Path+"</p>"+links.String()+"</body></html>")
		}))
		defer srv.Close()

		result, err := newCrawler(7, 5).Crawl(context.Background(), srv.URL+"/", nil)

		require.NoError(t, err)
		assert.Len(t, result.Documents, 7)
	})

	t.Run("never fetches beyond the depth cap", func(t *testing.T) {
		t.Parallel()

		fetcher, fetched := pages(map[string]string{
			"https://docs.example.com/":  `<a href="/a">a</a>`,
			"https://docs.example.com/a": `<a href="/b">b</a>`,
			"https://docs.example.com/b": `<a href="/c">c</a>`,
		})
		c := &crawl.Crawler{
			Fetcher:     fetcher,
			Parser:      goquery.NewParser(),
			Extractor:   extract.NewRegistry(),
			MaxPages:    50,
			MaxDepth:    1,
			RetryDelays: []time.Duration{},
		}

		result, err := c.Crawl(context.Background(), "https://docs.example.com/", nil)

		require.NoError(t, err)
		assert.Len(t, result.Documents, 2)
		assert.Equal(t, []string{"https://docs.example.com/", "https://docs.example.com/a"}, fetched())
	})

	t.Run("stays within the registrable domain", func(t *testing.T) {
		t.Parallel()

		fetcher, fetched := pages(map[string]string{
			"https://docs.example.com/": `<p>root</p>
				<a href="https://evil.example.org/">evil</a>
				<a href="https://sub.docs.example.com/guide#intro">sub</a>
				<a href="https://www.example.com/about">www</a>`,
			"https://sub.docs.example.com/guide": `<p>guide</p>`,
			"https://www.example.com/about":      `<p>about</p>`,
		})
		c := &crawl.Crawler{
			Fetcher:     fetcher,
			Parser:      goquery.NewParser(),
			Extractor:   extract.NewRegistry(),
			MaxPages:    50,
			MaxDepth:    3,
			RetryDelays: []time.Duration{},
		}

		result, err := c.Crawl(context.Background(), "https://docs.example.com/", nil)

		require.NoError(t, err)
		assert.Len(t, result.Documents, 3)
		assert.NotContains(t, fetched(), "https://evil.example.org/")
		assert.Contains(t, fetched(), "https://sub.docs.example.com/guide")
	})

	t.Run("unreachable root yields an empty result", func(t *testing.T) {
		t.Parallel()

		c := &crawl.Crawler{
			Fetcher: &mock.Fetcher{
				FetchFn: func(_ context.Context, _ string) (*corpus.Response, error) {
					return nil, errors.New("connection refused")
				},
			},
			Parser:      goquery.NewParser(),
			Extractor:   extract.NewRegistry(),
			RetryDelays: []time.Duration{},
		}

		result, err := c.Crawl(context.Background(), "https://docs.example.com/", nil)

		require.NoError(t, err)
		assert.Empty(t, result.Documents)
		assert.Equal(t, 1, result.Failed)
	})

	t.Run("rejects an invalid root url", func(t *testing.T) {
		t.Parallel()

		c := newCrawler(10, 1)

		_, err := c.Crawl(context.Background(), "ftp://docs.example.com/", nil)

		assert.Equal(t, corpus.EINVALID, corpus.ErrorCode(err))
	})

	t.Run("skips failing pages and continues", func(t *testing.T) {
		t.Parallel()

		fetcher, _ := pages(map[string]string{
			"https://docs.example.com/":   `<a href="/missing">m</a><a href="/ok">ok</a>`,
			"https://docs.example.com/ok": `<p>fine</p>`,
		})
		c := &crawl.Crawler{
			Fetcher:     fetcher,
			Parser:      goquery.NewParser(),
			Extractor:   extract.NewRegistry(),
			MaxDepth:    1,
			RetryDelays: []time.Duration{0, 0},
		}

		var failed []string
		result, err := c.Crawl(context.Background(), "https://docs.example.com/", func(e crawl.ProgressEvent) {
			if e.Type == crawl.ProgressFailed {
				failed = append(failed, e.URL)
			}
		})

		require.NoError(t, err)
		assert.Len(t, result.Documents, 2)
		assert.Equal(t, []string{"https://docs.example.com/missing"}, failed)
	})

	t.Run("recovers from parser panics", func(t *testing.T) {
		t.Parallel()

		fetcher, _ := pages(map[string]string{
			"https://docs.example.com/":     `<a href="/boom">b</a><a href="/ok">ok</a>`,
			"https://docs.example.com/boom": `boom`,
			"https://docs.example.com/ok":   `ok`,
		})
		parser := goquery.NewParser()
		c := &crawl.Crawler{
			Fetcher: fetcher,
			Parser: &mock.PageParser{
				ParseFn: func(html []byte, baseURL string) (*corpus.Page, error) {
					if strings.HasSuffix(baseURL, "/boom") {
						panic("malformed page")
					}
					return parser.Parse(html, baseURL)
				},
			},
			Extractor:   extract.NewRegistry(),
			MaxDepth:    1,
			RetryDelays: []time.Duration{},
		}

		result, err := c.Crawl(context.Background(), "https://docs.example.com/", nil)

		require.NoError(t, err)
		assert.Len(t, result.Documents, 2)
		assert.Equal(t, 1, result.Failed)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		c := &crawl.Crawler{
			Fetcher: &mock.Fetcher{
				FetchFn: func(_ context.Context, url string) (*corpus.Response, error) {
					if calls.Add(1) == 1 {
						return nil, &corpus.StatusError{URL: url, StatusCode: http.StatusServiceUnavailable}
					}
					return &corpus.Response{URL: url, ContentType: "text/html", Body: []byte("<p>up</p>")}, nil
				},
			},
			Parser:      goquery.NewParser(),
			Extractor:   extract.NewRegistry(),
			RetryDelays: []time.Duration{0},
		}

		result, err := c.Crawl(context.Background(), "https://docs.example.com/", nil)

		require.NoError(t, err)
		require.Len(t, result.Documents, 1)
		assert.Equal(t, "up", result.Documents[0].Text)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("keeps partial results on cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		fetcher, _ := pages(map[string]string{
			"https://docs.example.com/":  `<a href="/a">a</a><a href="/b">b</a>`,
			"https://docs.example.com/a": `<p>a</p>`,
			"https://docs.example.com/b": `<p>b</p>`,
		})
		c := &crawl.Crawler{
			Fetcher:     fetcher,
			Parser:      goquery.NewParser(),
			Extractor:   extract.NewRegistry(),
			MaxDepth:    1,
			RetryDelays: []time.Duration{},
		}

		result, err := c.Crawl(ctx, "https://docs.example.com/", func(e crawl.ProgressEvent) {
			if e.Type == crawl.ProgressCompleted {
				cancel()
			}
		})

		require.NoError(t, err)
		require.Len(t, result.Documents, 1)
		assert.Equal(t, "docs://https://docs.example.com/", result.Documents[0].ID)
	})

	t.Run("decodes inline data images", func(t *testing.T) {
		t.Parallel()

		fetcher, _ := pages(map[string]string{
			"https://docs.example.com/": `<p>logo</p><img src="data:image/png;base64,iVBORw0KGgo=">`,
		})
		c := &crawl.Crawler{
			Fetcher:     fetcher,
			Parser:      goquery.NewParser(),
			Extractor:   extract.NewRegistry(),
			RetryDelays: []time.Duration{},
		}

		result, err := c.Crawl(context.Background(), "https://docs.example.com/", nil)

		require.NoError(t, err)
		require.Len(t, result.Documents, 1)
		require.Len(t, result.Documents[0].Images, 1)
		img := result.Documents[0].Images[0]
		assert.Equal(t, "image/png", img.MIME)
		assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), img.Content)
		assert.Regexp(t, `^img-[0-9a-f]{32}\.png$`, img.Filename)
		assert.Equal(t, "inline:"+img.Filename, img.Source)
	})

	t.Run("fetches each image once per crawl", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			serveHTML(w, `<p>home</p><img src="/logo.png"><a href="/next">next</a>`)
		})
		mux.HandleFunc("/next", func(w http.ResponseWriter, _ *http.Request) {
			serveHTML(w, `<p>next</p><img src="/logo.png">`)
		})
		mux.HandleFunc("/logo.png", func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("\x89PNG\r\n\x1a\nlogo"))
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		result, err := newCrawler(10, 1).Crawl(context.Background(), srv.URL+"/", nil)

		require.NoError(t, err)
		require.Len(t, result.Documents, 2)
		require.Len(t, result.Documents[0].Images, 1)
		assert.Equal(t, srv.URL+"/logo.png", result.Documents[0].Images[0].Source)
		assert.Equal(t, "logo.png", result.Documents[0].Images[0].Filename)
		assert.Empty(t, result.Documents[1].Images)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("splits large documents into chunk documents", func(t *testing.T) {
		t.Parallel()

		para := strings.Repeat("word ", 12)
		body := "<p>" + para + "</p><p>" + para + "</p><p>" + para + "</p>"
		fetcher, _ := pages(map[string]string{"https://docs.example.com/": body})
		c := &crawl.Crawler{
			Fetcher:        fetcher,
			Parser:         goquery.NewParser(),
			Extractor:      extract.NewRegistry(),
			Splitter:       chunk.NewSplitter(chunk.WithMaxChunkChars(70), chunk.WithOverlapChars(0), chunk.WithMinChunkChars(0)),
			SplitThreshold: 100,
			RetryDelays:    []time.Duration{},
		}

		result, err := c.Crawl(context.Background(), "https://docs.example.com/", nil)

		require.NoError(t, err)
		require.Len(t, result.Documents, 4)
		parent := result.Documents[0]
		for i, doc := range result.Documents[1:] {
			assert.Equal(t, corpus.ChunkID(parent.ID, i), doc.ID)
			assert.Equal(t, parent.ID, doc.Parent)
			assert.Equal(t, strings.TrimSpace(para), doc.Text)
			assert.False(t, doc.HasAssets())
		}
	})

	t.Run("chunk documents count toward the page cap", func(t *testing.T) {
		t.Parallel()

		para := strings.Repeat("word ", 12)
		body := "<p>" + para + "</p><p>" + para + "</p><p>" + para + "</p>"
		fetcher, _ := pages(map[string]string{"https://docs.example.com/": body})
		c := &crawl.Crawler{
			Fetcher:        fetcher,
			Parser:         goquery.NewParser(),
			Extractor:      extract.NewRegistry(),
			Splitter:       chunk.NewSplitter(chunk.WithMaxChunkChars(70), chunk.WithOverlapChars(0), chunk.WithMinChunkChars(0)),
			SplitThreshold: 100,
			MaxPages:       2,
			RetryDelays:    []time.Duration{},
		}

		result, err := c.Crawl(context.Background(), "https://docs.example.com/", nil)

		require.NoError(t, err)
		assert.Len(t, result.Documents, 2)
	})

	t.Run("meta extractors fill missing keys only", func(t *testing.T) {
		t.Parallel()

		fetcher, _ := pages(map[string]string{
			"https://docs.example.com/": `<html><head><title>Page title</title></head><body><p>x</p></body></html>`,
		})
		c := &crawl.Crawler{
			Fetcher:   fetcher,
			Parser:    goquery.NewParser(),
			Extractor: extract.NewRegistry(),
			Meta: []corpus.MetaExtractor{&mock.MetaExtractor{
				ExtractMetaFn: func(_ []byte, _ string) (map[string]string, error) {
					return map[string]string{
						corpus.MetaTitle:       "Other title",
						corpus.MetaDescription: "About x",
					}, nil
				},
			}},
			RetryDelays: []time.Duration{},
		}

		result, err := c.Crawl(context.Background(), "https://docs.example.com/", nil)

		require.NoError(t, err)
		require.Len(t, result.Documents, 1)
		assert.Equal(t, "Page title", result.Documents[0].Meta[corpus.MetaTitle])
		assert.Equal(t, "About x", result.Documents[0].Meta[corpus.MetaDescription])
	})

	t.Run("seeds the frontier from sitemaps", func(t *testing.T) {
		t.Parallel()

		fetcher, fetched := pages(map[string]string{
			"https://docs.example.com/":       `<p>root</p>`,
			"https://docs.example.com/orphan": `<p>orphan</p>`,
		})
		c := &crawl.Crawler{
			Fetcher:   fetcher,
			Parser:    goquery.NewParser(),
			Extractor: extract.NewRegistry(),
			Sitemaps: &mock.SitemapService{
				DiscoverURLsFn: func(_ context.Context, _ string) ([]string, error) {
					return []string{"https://docs.example.com/orphan", "https://evil.example.org/"}, nil
				},
			},
			MaxDepth:    1,
			RetryDelays: []time.Duration{},
		}

		result, err := c.Crawl(context.Background(), "https://docs.example.com/", nil)

		require.NoError(t, err)
		assert.Len(t, result.Documents, 2)
		assert.Equal(t, []string{"https://docs.example.com/", "https://docs.example.com/orphan"}, fetched())
	})

	t.Run("fetches a sitemap-seeded file once when a page links it", func(t *testing.T) {
		t.Parallel()

		var (
			mu      sync.Mutex
			fetched []string
		)
		fetcher := &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (*corpus.Response, error) {
				mu.Lock()
				fetched = append(fetched, url)
				mu.Unlock()
				switch url {
				case "https://docs.example.com/":
					return &corpus.Response{URL: url, ContentType: "text/html", Body: []byte(`<p>root</p>`)}, nil
				case "https://docs.example.com/guide":
					return &corpus.Response{URL: url, ContentType: "text/html", Body: []byte(`<p>guide</p><a href="/report.zip">report</a>`)}, nil
				case "https://docs.example.com/report.zip":
					return &corpus.Response{URL: url, ContentType: "application/zip", Body: []byte("PK-not-really")}, nil
				}
				return nil, &corpus.StatusError{URL: url, StatusCode: http.StatusNotFound}
			},
		}
		c := &crawl.Crawler{
			Fetcher:   fetcher,
			Parser:    goquery.NewParser(),
			Extractor: extract.NewRegistry(),
			Sitemaps: &mock.SitemapService{
				DiscoverURLsFn: func(context.Context, string) ([]string, error) {
					return []string{"https://docs.example.com/report.zip", "https://docs.example.com/guide"}, nil
				},
			},
			MaxDepth:    2,
			RetryDelays: []time.Duration{},
		}

		result, err := c.Crawl(context.Background(), "https://docs.example.com/", nil)

		require.NoError(t, err)
		var hits int
		for _, u := range fetched {
			if u == "https://docs.example.com/report.zip" {
				hits++
			}
		}
		assert.Equal(t, 1, hits)
		guide := result.ByID()["docs://https://docs.example.com/guide"]
		require.NotNil(t, guide)
		require.Len(t, guide.Files, 1)
		assert.Equal(t, []byte("PK-not-really"), guide.Files[0].Content)
	})

	t.Run("counts pages rendered by the fetcher", func(t *testing.T) {
		t.Parallel()

		fetcher := &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (*corpus.Response, error) {
				switch url {
				case "https://docs.example.com/":
					return &corpus.Response{URL: url, ContentType: "text/html", Body: []byte(`<p>app</p><a href="/static">s</a>`), Rendered: true}, nil
				case "https://docs.example.com/static":
					return &corpus.Response{URL: url, ContentType: "text/html", Body: []byte(`<p>static</p>`)}, nil
				}
				return nil, &corpus.StatusError{URL: url, StatusCode: http.StatusNotFound}
			},
		}
		c := &crawl.Crawler{
			Fetcher:     fetcher,
			Parser:      goquery.NewParser(),
			Extractor:   extract.NewRegistry(),
			MaxDepth:    1,
			RetryDelays: []time.Duration{},
		}
		var rendered []string
		progress := func(e crawl.ProgressEvent) {
			if e.Type == crawl.ProgressCompleted && e.Rendered {
				rendered = append(rendered, e.URL)
			}
		}

		result, err := c.Crawl(context.Background(), "https://docs.example.com/", progress)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Rendered)
		assert.Equal(t, []string{"https://docs.example.com/"}, rendered)
		docs := result.ByID()
		assert.Equal(t, "true", docs["docs://https://docs.example.com/"].Meta[corpus.MetaRendered])
		assert.Empty(t, docs["docs://https://docs.example.com/static"].Meta[corpus.MetaRendered])
	})

	t.Run("waits on the rate limiter per host", func(t *testing.T) {
		t.Parallel()

		fetcher, _ := pages(map[string]string{"https://docs.example.com/": `<p>x</p>`})
		var hosts []string
		c := &crawl.Crawler{
			Fetcher:   fetcher,
			Parser:    goquery.NewParser(),
			Extractor: extract.NewRegistry(),
			RateLimiter: &mock.DomainLimiter{
				WaitFn: func(_ context.Context, domain string) error {
					hosts = append(hosts, domain)
					return nil
				},
			},
			RetryDelays: []time.Duration{},
		}

		_, err := c.Crawl(context.Background(), "https://docs.example.com/", nil)

		require.NoError(t, err)
		assert.Equal(t, []string{"docs.example.com"}, hosts)
	})
}
