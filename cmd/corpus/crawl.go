package main

import (
	"context"
	"fmt"

	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/crawl"
)

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	rootURL := c.URL
	if c.Area != "" {
		area, err := deps.Areas.FindAreaByName(deps.Ctx, c.Area)
		if err != nil {
			if corpus.ErrorCode(err) == corpus.ENOTFOUND {
				fmt.Fprintf(deps.Stderr, "error: area %q not found. Use 'corpus areas list' to see available areas.\n", c.Area)
			} else {
				fmt.Fprintf(deps.Stderr, "error: %s\n", corpus.ErrorMessage(err))
			}
			return err
		}
		rootURL = area.URL
	}
	if rootURL == "" {
		fmt.Fprintln(deps.Stderr, "error: a URL or --area is required")
		return corpus.Errorf(corpus.EINVALID, "URL or area required")
	}

	result, err := crawlAndSave(deps, rootURL, c.CrawlOptions)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", corpus.ErrorMessage(err))
		return err
	}

	snap := deps.Store.Snapshot()
	fmt.Fprintf(deps.Stdout, "Crawled %d documents from %s (%d failed, %s)\n",
		len(result.Documents), rootURL, result.Failed, crawl.FormatBytes(result.Bytes))
	if result.Rendered > 0 {
		fmt.Fprintf(deps.Stdout, "Rendered %d pages in a headless browser\n", result.Rendered)
	}
	fmt.Fprintf(deps.Stdout, "Indexed %d documents, %d chunks\n", len(snap.Documents), snap.TotalChunks())
	return nil
}

// crawlAndSave crawls rootURL, adds the documents to the store and saves
// the store. A cancelled crawl still saves what it produced.
func crawlAndSave(deps *Dependencies, rootURL string, opts CrawlOptions) (*crawl.Result, error) {
	deps.Crawler.MaxPages = opts.MaxPages
	deps.Crawler.MaxDepth = opts.MaxDepth

	progress := func(event crawl.ProgressEvent) {
		switch event.Type {
		case crawl.ProgressCompleted:
			suffix := ""
			if event.Rendered {
				suffix = " (rendered)"
			}
			fmt.Fprintf(deps.Stderr, "  [%d] %s%s\n", event.Completed, crawl.TruncateURL(event.URL, 80), suffix)
		case crawl.ProgressFailed:
			fmt.Fprintf(deps.Stderr, "  skip %s: %v\n", crawl.TruncateURL(event.URL, 80), event.Error)
		}
	}

	result, err := deps.Crawler.Crawl(deps.Ctx, rootURL, progress)
	if err != nil {
		return nil, err
	}

	ctx := context.WithoutCancel(deps.Ctx)
	for _, doc := range result.Documents {
		if err := deps.Store.AddDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("indexing %s: %w", doc.ID, err)
		}
	}
	if err := deps.Snapshots.SaveSnapshot(ctx, deps.Store.Snapshot().Documents); err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	return result, nil
}
