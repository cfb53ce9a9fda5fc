package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run metadata is a small key-value table for pipeline bookkeeping, kept
// apart from content rows so post queries never see synthetic records.

// GetLastSync returns the last successful sync time for a source, or the
// zero time if the source has never synced.
func (s *Store) GetLastSync(ctx context.Context, source string) (time.Time, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM run_metadata WHERE key = ?`, syncKey(source)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt last-sync value for %s: %w", source, err)
	}
	return t, nil
}

// SetLastSync records the last successful sync time for a source
func (s *Store) SetLastSync(ctx context.Context, source string, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_metadata (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, syncKey(source), t.UTC().Format(time.RFC3339), time.Now())
	return err
}

func syncKey(source string) string {
	return "last_sync." + source
}
