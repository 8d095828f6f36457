package state

import (
	"context"
	"fmt"
	"time"
)

// Run is one recorded sync.
type Run struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Added       int       `json:"added"`
	Changed     int       `json:"changed"`
	Unchanged   int       `json:"unchanged"`
	Removed     int       `json:"removed"`
}

// ListRuns returns the most recent runs, newest first. A non-positive limit
// returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, completed_at, added, changed, unchanged, removed
		FROM runs ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                Run
			started, stopped string
		)
		if err := rows.Scan(&r.ID, &started, &stopped, &r.Added, &r.Changed, &r.Unchanged, &r.Removed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if r.CompletedAt, err = parseTime(stopped); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
