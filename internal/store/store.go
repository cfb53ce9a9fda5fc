// Package store persists posts, linked articles, verdicts, run metadata and
// pledges in SQLite.
package store

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY between concurrent readers and the writer.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		external_id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		author TEXT,
		platform TEXT NOT NULL,
		post_type TEXT NOT NULL,
		published_at DATETIME,
		source_url TEXT,
		likes INTEGER DEFAULT 0,
		shares INTEGER DEFAULT 0,
		replies INTEGER DEFAULT 0,
		quotes INTEGER DEFAULT 0,
		link_urls TEXT,
		media_refs TEXT,
		raw_payload TEXT,
		ingested_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS linked_articles (
		post_id TEXT NOT NULL REFERENCES posts(external_id),
		url TEXT NOT NULL,
		title TEXT,
		body_text TEXT,
		word_count INTEGER DEFAULT 0,
		status TEXT NOT NULL,
		fetch_error TEXT,
		fetched_at DATETIME NOT NULL,
		PRIMARY KEY (post_id, url)
	);

	CREATE TABLE IF NOT EXISTS analysis_verdicts (
		post_id TEXT PRIMARY KEY REFERENCES posts(external_id),
		flagged BOOLEAN NOT NULL,
		confidence TEXT NOT NULL,
		severity TEXT NOT NULL,
		concerns TEXT,
		explanation TEXT,
		recommendations TEXT,
		text_analysis TEXT,
		article_analysis TEXT,
		visual_analysis TEXT,
		combined_analysis TEXT,
		articles_considered INTEGER DEFAULT 0,
		images_considered INTEGER DEFAULT 0,
		analyzed_at DATETIME NOT NULL,
		raw_model_output TEXT
	);

	CREATE TABLE IF NOT EXISTS run_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pledges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		donor_email TEXT NOT NULL,
		per_post_cents INTEGER NOT NULL,
		accrued_cents INTEGER NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS flag_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_id TEXT NOT NULL REFERENCES posts(external_id),
		flagged_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_posts_published_at ON posts(published_at);
	CREATE INDEX IF NOT EXISTS idx_verdicts_flagged ON analysis_verdicts(flagged);
	CREATE INDEX IF NOT EXISTS idx_flag_events_post ON flag_events(post_id);
	`

	_, err := s.db.Exec(schema)
	return err
}
