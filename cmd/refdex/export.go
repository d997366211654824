package main

import (
	"fmt"
	"path/filepath"

	"github.com/fwojciec/refdex"
	"github.com/fwojciec/refdex/etree"
	"github.com/fwojciec/refdex/fs"
)

// Run executes the export command.
func (c *ExportCmd) Run(deps *Dependencies) error {
	if c.Format == "markdown" {
		return c.exportMarkdown(deps)
	}

	exporter := etree.NewExporter(deps.Nodes)
	if c.Out == "" {
		if err := exporter.Export(deps.Ctx, deps.Stdout); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", refdex.ErrorMessage(err))
			return err
		}
		fmt.Fprintln(deps.Stdout)
		return nil
	}

	if err := exporter.ExportFile(deps.Ctx, c.Out); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", refdex.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Exported reference tree to %s\n", c.Out)
	return nil
}

func (c *ExportCmd) exportMarkdown(deps *Dependencies) error {
	if c.Out == "" {
		fmt.Fprintln(deps.Stderr, "error: --out is required for markdown export")
		return refdex.Errorf(refdex.EINVALID, "output directory required")
	}

	nodes, err := deps.Nodes.FindNodes(deps.Ctx, refdex.NodeFilter{})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", refdex.ErrorMessage(err))
		return err
	}

	out := filepath.Clean(c.Out)
	dir := fs.NewTreeDir(filepath.Dir(out), filepath.Base(out))
	for _, node := range nodes {
		if err := dir.Save(node); err != nil {
			_ = dir.Abort()
			fmt.Fprintf(deps.Stderr, "error: %s\n", refdex.ErrorMessage(err))
			return err
		}
	}
	if err := dir.Commit(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", refdex.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Exported %d pages to %s\n", len(nodes), dir.Dir())
	return nil
}
