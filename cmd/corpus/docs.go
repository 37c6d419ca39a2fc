package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/fwojciec/corpus"
)

// Run executes the docs command.
func (c *DocsCmd) Run(deps *Dependencies) error {
	docs := corpus.Summarize(deps.Store.Snapshot())

	if c.JSON {
		enc := json.NewEncoder(deps.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"documents": docs, "total": len(docs)})
	}

	if len(docs) == 0 {
		fmt.Fprintln(deps.Stdout, "No documents found. Use 'corpus crawl' to index a site.")
		return nil
	}

	tw := tabwriter.NewWriter(deps.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tCHARS\tIMAGES\tFILES\tCHUNKS")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n", d.ID, d.ContentType, d.TextLength, d.Images, d.Files, d.Chunks)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(deps.Stdout, "\n%d documents\n", len(docs))
	return nil
}

// Run executes the chunks command.
func (c *ChunksCmd) Run(deps *Dependencies) error {
	snap := deps.Store.Snapshot()
	if c.Doc != "" && snap.Document(c.Doc) == nil {
		fmt.Fprintf(deps.Stderr, "error: document %q not found. Use 'corpus docs' to see available documents.\n", c.Doc)
		return corpus.Errorf(corpus.ENOTFOUND, "document %q not found", c.Doc)
	}

	chunks := corpus.PreviewChunks(snap, c.Doc, c.Limit)

	if c.JSON {
		enc := json.NewEncoder(deps.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"chunks": chunks, "total": snap.TotalChunks()})
	}

	if len(chunks) == 0 {
		fmt.Fprintln(deps.Stdout, "No chunks found.")
		return nil
	}

	for _, ch := range chunks {
		fmt.Fprintf(deps.Stdout, "%s (%d chars)\n", ch.ID, ch.CharLength)
		if ch.Preview != "" {
			fmt.Fprintf(deps.Stdout, "  %s\n", ch.Preview)
		}
	}
	fmt.Fprintf(deps.Stdout, "\nShowing %d of %d chunks\n", len(chunks), snap.TotalChunks())
	return nil
}
