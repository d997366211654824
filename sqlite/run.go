package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/fwojciec/refdex"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ refdex.RunService = (*RunService)(nil)

// RunService implements refdex.RunService using SQLite.
type RunService struct {
	db *DB
}

// NewRunService creates a new RunService.
func NewRunService(db *DB) *RunService {
	return &RunService{db: db}
}

// CreateRun records the start of a crawl pass.
func (s *RunService) CreateRun(ctx context.Context, run *refdex.Run) error {
	if run.IndexURL == "" {
		return refdex.Errorf(refdex.EINVALID, "run index URL required")
	}

	run.ID = uuid.New().String()
	run.StartedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crawl_runs (id, index_url, started_at)
		VALUES (?, ?, ?)
	`, run.ID, run.IndexURL, formatTimestamp(run.StartedAt))

	return storeError(err)
}

// FinishRun stores the counters and finish time of a run.
func (s *RunService) FinishRun(ctx context.Context, id string, stats refdex.RunStats) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE crawl_runs
		SET finished_at = ?, visited = ?, derived = ?, skipped = ?, unresolved = ?,
			model_failures = ?, writes = ?, tokens = ?
		WHERE id = ?
	`, formatTimestamp(time.Now()), stats.Visited, stats.Derived, stats.Skipped, stats.Unresolved,
		stats.ModelFailures, stats.Writes, stats.Tokens, id)
	if err != nil {
		return storeError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return refdex.Errorf(refdex.ENOTFOUND, "run not found")
	}
	return nil
}

// FindRuns returns the most recent runs first. A non-positive limit returns all runs.
func (s *RunService) FindRuns(ctx context.Context, limit int) ([]*refdex.Run, error) {
	query := `
		SELECT id, index_url, started_at, finished_at, visited, derived, skipped, unresolved,
			model_failures, writes, tokens
		FROM crawl_runs
		ORDER BY started_at DESC, rowid DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*refdex.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func scanRun(row scanner) (*refdex.Run, error) {
	var run refdex.Run
	var startedAt, finishedAt sql.NullString

	if err := row.Scan(&run.ID, &run.IndexURL, &startedAt, &finishedAt,
		&run.Stats.Visited, &run.Stats.Derived, &run.Stats.Skipped, &run.Stats.Unresolved,
		&run.Stats.ModelFailures, &run.Stats.Writes, &run.Stats.Tokens); err != nil {
		return nil, err
	}

	var err error
	run.StartedAt, err = parseTimestamp(startedAt.String, "started_at")
	if err != nil {
		return nil, err
	}
	if finishedAt.String != "" {
		run.FinishedAt, err = parseTimestamp(finishedAt.String, "finished_at")
		if err != nil {
			return nil, err
		}
	}

	return &run, nil
}
