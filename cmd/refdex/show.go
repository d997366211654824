package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/refdex"
)

// Run executes the show command.
func (c *ShowCmd) Run(deps *Dependencies) error {
	node, err := deps.Nodes.FindNodeByURL(deps.Ctx, c.URL)
	if err != nil {
		if refdex.ErrorCode(err) == refdex.ENOTFOUND {
			fmt.Fprintf(deps.Stderr, "error: page %q not indexed. Use 'refdex crawl' to index the site.\n", c.URL)
			return err
		}
		fmt.Fprintf(deps.Stderr, "error: %s\n", refdex.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "URL:         %s\n", node.URL)
	fmt.Fprintf(deps.Stdout, "Type:        %s\n", node.Type)
	fmt.Fprintf(deps.Stdout, "Depth:       %d\n", node.Depth)
	if !node.UpdatedAt.IsZero() {
		fmt.Fprintf(deps.Stdout, "Updated:     %s\n", node.UpdatedAt.Format(time.DateTime))
	}
	description := node.Description
	if description == "" {
		description = "(none)"
	}
	fmt.Fprintf(deps.Stdout, "Description: %s\n", description)
	fmt.Fprintf(deps.Stdout, "Keywords:    %s\n", strings.Join(node.Keywords, ", "))

	if len(node.ChildIDs) == 0 {
		return nil
	}

	children, err := deps.Nodes.FindNodes(deps.Ctx, refdex.NodeFilter{IDs: node.ChildIDs})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", refdex.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Children (%d):\n", len(children))
	for _, child := range children {
		fmt.Fprintf(deps.Stdout, "  %-8s  %s\n", child.Type, child.URL)
	}
	return nil
}
