package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/refdex"
)

// Run executes the history command.
func (c *HistoryCmd) Run(deps *Dependencies) error {
	runs, err := deps.Runs.FindRuns(deps.Ctx, c.Limit)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", refdex.ErrorMessage(err))
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(deps.Stdout, "No crawl runs recorded. Use 'refdex crawl' to index a reference site.")
		return nil
	}

	for _, r := range runs {
		status := "running"
		if r.Finished() {
			status = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(deps.Stdout, "%s  %s  %-8s  visited=%d derived=%d skipped=%d unresolved=%d writes=%d tokens=%d\n",
			r.ID, r.StartedAt.Format(time.DateTime), status,
			r.Stats.Visited, r.Stats.Derived, r.Stats.Skipped, r.Stats.Unresolved, r.Stats.Writes, r.Stats.Tokens)
	}
	return nil
}
