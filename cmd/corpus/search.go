package main

import (
	"fmt"

	"github.com/fwojciec/corpus"
)

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	chunks, err := deps.Ranker.Retrieve(deps.Ctx, c.Query, c.K)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", corpus.ErrorMessage(err))
		return err
	}

	if len(chunks) == 0 {
		fmt.Fprintln(deps.Stdout, "No matching chunks. Use 'corpus crawl' to index a site first.")
		return nil
	}

	for i, ch := range chunks {
		fmt.Fprintf(deps.Stdout, "%d. %s (score %.3f, %d chars)\n", i+1, ch.ID, ch.Score, ch.CharLength)
		if preview := corpus.Preview(ch.Text, corpus.DefaultPreviewChars); preview != "" {
			fmt.Fprintf(deps.Stdout, "   %s\n", preview)
		}
		if n := len(ch.Images) + len(ch.Files); n > 0 {
			fmt.Fprintf(deps.Stdout, "   %d images, %d files\n", len(ch.Images), len(ch.Files))
		}
	}
	return nil
}
