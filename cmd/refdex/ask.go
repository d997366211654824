package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fwojciec/refdex"
	"github.com/fwojciec/refdex/chi"
)

// Run executes the ask command.
func (c *AskCmd) Run(deps *Dependencies) error {
	res, err := deps.Resolver.Resolve(deps.Ctx, c.Question)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", refdex.ErrorMessage(err))
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(deps.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if len(res.Keywords) > 0 {
		fmt.Fprintf(deps.Stdout, "Keywords: %s\n", strings.Join(res.Keywords, ", "))
	}
	if res.Status != refdex.StatusMatched {
		fmt.Fprintln(deps.Stdout, chi.FormatAnswer(res))
		return nil
	}
	for i, u := range res.URLs {
		fmt.Fprintf(deps.Stdout, "%d. %s\n", i+1, u)
	}
	return nil
}
