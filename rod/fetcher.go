// Package rod renders JavaScript-driven pages with a headless Chrome
// browser via github.com/go-rod/rod.
package rod

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fwojciec/corpus"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

var _ corpus.Fetcher = (*Fetcher)(nil)

// Rendering defaults.
const (
	DefaultRenderTimeout = 30 * time.Second

	// DefaultRecycleAfter is the number of rendered pages after which the
	// browser is replaced, bounding Chrome's memory over a long crawl.
	DefaultRecycleAfter = 75
)

// Fetcher fetches resources with a plain fetcher and replaces the body of
// HTML responses with the DOM rendered by a browser. Non-HTML resources
// (images, PDFs, archives) are returned as fetched, so a crawl that only
// meets binaries never starts Chrome.
//
// The browser is launched on the first HTML page and relaunched after
// every recycleAfter rendered pages. Fetcher is safe for concurrent use.
type Fetcher struct {
	plain        corpus.Fetcher
	timeout      time.Duration
	recycleAfter int

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	rendered int // pages rendered by the current browser
	total    int
	closed   bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRenderTimeout sets the per-page rendering timeout.
func WithRenderTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithRecycleAfter sets how many pages one browser renders before it is
// replaced.
func WithRecycleAfter(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.recycleAfter = n
		}
	}
}

// NewFetcher returns a Fetcher that renders the HTML responses of plain.
// Close must be called when the Fetcher is no longer needed; it closes
// plain too.
func NewFetcher(plain corpus.Fetcher, opts ...Option) *Fetcher {
	f := &Fetcher{
		plain:        plain,
		timeout:      DefaultRenderTimeout,
		recycleAfter: DefaultRecycleAfter,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves url and renders it if it is an HTML page.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*corpus.Response, error) {
	if f.isClosed() {
		return nil, corpus.Errorf(corpus.EINVALID, "fetcher is closed")
	}

	resp, err := f.plain.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if !resp.IsHTML() {
		return resp, nil
	}

	html, final, err := f.render(ctx, resp.URL)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", url, err)
	}
	return &corpus.Response{
		URL:         final,
		ContentType: resp.ContentType,
		Body:        []byte(html),
		Rendered:    true,
	}, nil
}

func (f *Fetcher) render(ctx context.Context, url string) (html, final string, err error) {
	browser, err := f.acquire()
	if err != nil {
		return "", "", err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", "", err
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.Navigate(url); err != nil {
		return "", "", err
	}
	if err := page.WaitLoad(); err != nil {
		return "", "", err
	}
	if html, err = page.HTML(); err != nil {
		return "", "", err
	}

	final = url
	if info, err := page.Info(); err == nil && info.URL != "" {
		final = info.URL
	}
	return html, final, nil
}

// acquire returns the browser for the next page, launching it on first
// use and replacing it once it has rendered recycleAfter pages. A failed
// relaunch keeps the old browser.
func (f *Fetcher) acquire() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, corpus.Errorf(corpus.EINVALID, "fetcher is closed")
	}
	if f.browser != nil && f.rendered >= f.recycleAfter {
		if browser, lnchr, err := launch(); err == nil {
			f.shutdown()
			f.browser, f.launcher, f.rendered = browser, lnchr, 0
		}
	}
	if f.browser == nil {
		browser, lnchr, err := launch()
		if err != nil {
			return nil, err
		}
		f.browser, f.launcher, f.rendered = browser, lnchr, 0
	}
	f.rendered++
	f.total++
	return f.browser, nil
}

// launch starts a headless browser with flags that keep background pages
// from being throttled.
func launch() (*rod.Browser, *launcher.Launcher, error) {
	lnchr := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Leakless(true).
		Headless(true)

	u, err := lnchr.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launching browser: %w", err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		lnchr.Kill()
		return nil, nil, fmt.Errorf("connecting to browser: %w", err)
	}
	return browser, lnchr, nil
}

// shutdown closes the current browser. Must be called with mu held.
func (f *Fetcher) shutdown() error {
	var err error
	if f.browser != nil {
		err = f.browser.Close()
		f.browser = nil
	}
	if f.launcher != nil {
		f.launcher.Kill()
		f.launcher = nil
	}
	return err
}

// Rendered returns the number of pages rendered so far.
func (f *Fetcher) Rendered() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

// LauncherPID returns the process ID of the browser launcher, or 0 when
// no browser is running.
func (f *Fetcher) LauncherPID() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.launcher == nil {
		return 0
	}
	return f.launcher.PID()
}

func (f *Fetcher) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Close releases browser resources and closes the plain fetcher.
// Close is safe to call multiple times.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	err := f.shutdown()
	f.mu.Unlock()

	if cerr := f.plain.Close(); err == nil {
		err = cerr
	}
	return err
}
