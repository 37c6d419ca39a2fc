package main

import (
	"fmt"

	"github.com/fwojciec/corpus"
)

// Run executes the areas list command.
func (c *AreasListCmd) Run(deps *Dependencies) error {
	areas, err := deps.Areas.FindAreas(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", corpus.ErrorMessage(err))
		return err
	}

	if len(areas) == 0 {
		fmt.Fprintln(deps.Stdout, "No areas found. Use 'corpus areas add' to create one.")
		return nil
	}

	for _, a := range areas {
		name := a.DisplayName
		if name == "" {
			name = a.Name
		}
		fmt.Fprintf(deps.Stdout, "%s  %s  %s\n", a.Name, name, a.URL)
		if a.Description != "" {
			fmt.Fprintf(deps.Stdout, "    %s\n", a.Description)
		}
	}
	return nil
}

// Run executes the areas add command.
func (c *AreasAddCmd) Run(deps *Dependencies) error {
	area := &corpus.Area{
		Name:        c.Name,
		DisplayName: c.DisplayName,
		URL:         c.URL,
		Description: c.Description,
	}
	if err := deps.Areas.CreateArea(deps.Ctx, area); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", corpus.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Added area %q (%s)\n", c.Name, c.URL)
	return nil
}

// Run executes the areas delete command.
func (c *AreasDeleteCmd) Run(deps *Dependencies) error {
	if err := deps.Areas.DeleteArea(deps.Ctx, c.Name); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", corpus.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Deleted area %q\n", c.Name)
	return nil
}
