package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/ask"
)

// Run executes the ask command. The answer is written to stdout as
// newline-delimited JSON events.
func (c *AskCmd) Run(deps *Dependencies) error {
	req := ask.Request{Question: c.Question}
	if c.File != "" {
		data, err := os.ReadFile(c.File)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %v\n", err)
			return err
		}
		req.Upload = &ask.Upload{Name: filepath.Base(c.File), Data: data}
	}

	if c.K > 0 {
		deps.Ask.K = c.K
	}

	if err := deps.Ask.Stream(deps.Ctx, ask.NewNDJSONWriter(deps.Stdout), req); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", corpus.ErrorMessage(err))
		return err
	}
	return nil
}
