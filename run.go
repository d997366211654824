package refdex

import (
	"context"
	"time"
)

// Run records one crawl pass over the reference site.
type Run struct {
	ID         string    `json:"id"`
	IndexURL   string    `json:"indexUrl"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Stats      RunStats  `json:"stats"`
}

// RunStats holds the counters of a crawl pass.
type RunStats struct {
	Visited       int `json:"visited"`
	Derived       int `json:"derived"`
	Skipped       int `json:"skipped"`
	Unresolved    int `json:"unresolved"`
	ModelFailures int `json:"modelFailures"`
	Writes        int `json:"writes"`
	Tokens        int `json:"tokens"`
}

// Finished reports whether the run has completed.
func (r *Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// RunService records crawl passes.
type RunService interface {
	// CreateRun starts a run, assigning its ID and start time.
	CreateRun(ctx context.Context, run *Run) error

	// FinishRun stores the final counters and finish time.
	// Returns ENOTFOUND if the run does not exist.
	FinishRun(ctx context.Context, id string, stats RunStats) error

	// FindRuns returns the most recent runs first.
	FindRuns(ctx context.Context, limit int) ([]*Run, error)
}
