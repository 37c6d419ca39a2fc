package main

import (
	"fmt"
	"path/filepath"

	"github.com/fwojciec/corpus"
	"github.com/fwojciec/corpus/fs"
)

// Run executes the export command.
func (c *ExportCmd) Run(deps *Dependencies) error {
	dir := filepath.Clean(c.Dir)
	exp := fs.NewExporter(filepath.Dir(dir), filepath.Base(dir))

	docs := deps.Store.Snapshot().Documents
	for _, doc := range docs {
		if err := exp.Save(deps.Ctx, doc); err != nil {
			_ = exp.Abort()
			fmt.Fprintf(deps.Stderr, "error: %s: %s\n", doc.ID, corpus.ErrorMessage(err))
			return err
		}
	}
	if err := exp.Commit(); err != nil {
		_ = exp.Abort()
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}

	fmt.Fprintf(deps.Stdout, "Exported %d documents to %s\n", len(docs), exp.Dir())
	return nil
}
