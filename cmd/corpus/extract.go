package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/crawl"
)

// Run executes the extract command.
func (c *ExtractCmd) Run(deps *Dependencies) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}

	hint := c.Name
	if hint == "" {
		hint = filepath.Base(c.File)
	}

	ext := deps.Extractor.Extract(data, hint)
	if ext.Empty() {
		fmt.Fprintf(deps.Stderr, "nothing extracted from %s\n", c.File)
		return nil
	}

	if ext.Text != "" {
		fmt.Fprintln(deps.Stdout, ext.Text)
	}
	printAssets(deps, "Images", ext.Images)
	printAssets(deps, "Files", ext.Files)
	return nil
}

func printAssets(deps *Dependencies, label string, assets []corpus.Asset) {
	if len(assets) == 0 {
		return
	}
	fmt.Fprintf(deps.Stdout, "\n%s (%d):\n", label, len(assets))
	for i, a := range assets {
		name := a.Filename
		if name == "" {
			name = corpus.FileName(a.Source)
		}
		fmt.Fprintf(deps.Stdout, "  %d. %s (%s, %s) %s\n", i+1, name, a.MIME, crawl.FormatBytes(a.Size()), a.Source)
	}
}
