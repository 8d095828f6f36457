package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/leapstack-labs/plmap/internal/chunk"
)

// SyncResult reports how a sync changed the cache. Each list holds chunk ids
// sorted ascending.
type SyncResult struct {
	RunID     string   `json:"run_id" yaml:"run_id"`
	Added     []string `json:"added" yaml:"added"`
	Changed   []string `json:"changed" yaml:"changed"`
	Unchanged []string `json:"unchanged" yaml:"unchanged"`
	Removed   []string `json:"removed" yaml:"removed"`
}

// Sync makes the cache hold exactly chunks. Chunks are compared with the
// stored rows by id and content hash; rows whose id is absent from chunks
// are removed. The sync is recorded as a run.
func (s *Store) Sync(ctx context.Context, chunks []chunk.Chunk) (*SyncResult, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	started := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin sync: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stored, err := storedHashes(ctx, tx)
	if err != nil {
		return nil, err
	}

	res := &SyncResult{RunID: generateID()}
	now := formatTime(started)
	for _, c := range chunks {
		hash, exists := stored[c.ID]
		delete(stored, c.ID)
		switch {
		case !exists:
			if err := upsertChunk(ctx, tx, c, now); err != nil {
				return nil, err
			}
			res.Added = append(res.Added, c.ID)
		case hash != c.ContentHash:
			if err := upsertChunk(ctx, tx, c, now); err != nil {
				return nil, err
			}
			res.Changed = append(res.Changed, c.ID)
		default:
			res.Unchanged = append(res.Unchanged, c.ID)
		}
	}

	for id := range stored {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE id = ?`, id); err != nil {
			return nil, fmt.Errorf("failed to remove chunk %s: %w", id, err)
		}
		res.Removed = append(res.Removed, id)
	}

	for _, ids := range [][]string{res.Added, res.Changed, res.Unchanged, res.Removed} {
		sort.Strings(ids)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, completed_at, added, changed, unchanged, removed) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, now, formatTime(time.Now()),
		len(res.Added), len(res.Changed), len(res.Unchanged), len(res.Removed),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sync: %w", err)
	}

	s.logger.Info("synced chunk cache",
		slog.String("run", res.RunID),
		slog.Int("added", len(res.Added)),
		slog.Int("changed", len(res.Changed)),
		slog.Int("unchanged", len(res.Unchanged)),
		slog.Int("removed", len(res.Removed)),
		slog.Duration("duration", time.Since(started)))
	return res, nil
}

func storedHashes(ctx context.Context, tx *sql.Tx) (map[string]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, content_hash FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		hashes[id] = hash
	}
	return hashes, rows.Err()
}

func upsertChunk(ctx context.Context, tx *sql.Tx, c chunk.Chunk, now string) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode chunk %s: %w", c.ID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO chunks (id, kind, name, qualified_name, file, start_line, end_line, content_hash, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			kind = excluded.kind,
			name = excluded.name,
			qualified_name = excluded.qualified_name,
			file = excluded.file,
			start_line = excluded.start_line,
			end_line = excluded.end_line,
			content_hash = excluded.content_hash,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		c.ID, string(c.Kind), c.Name, c.QualifiedName, c.File, c.StartLine, c.EndLine, c.ContentHash, string(payload), now,
	)
	if err != nil {
		return fmt.Errorf("failed to store chunk %s: %w", c.ID, err)
	}
	return nil
}

// GetChunk returns the cached chunk with id.
func (s *Store) GetChunk(ctx context.Context, id string) (*chunk.Chunk, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM chunks WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chunk %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}

	var c chunk.Chunk
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return nil, fmt.Errorf("failed to decode chunk %s: %w", id, err)
	}
	return &c, nil
}

// ContentHashes returns the stored content hash of every cached chunk.
func (s *Store) ContentHashes(ctx context.Context) (map[string]string, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return storedHashes(ctx, tx)
}
