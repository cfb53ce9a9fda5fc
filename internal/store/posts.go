package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// UpsertPost inserts a post if its external_id is not already present.
// A conflict is a silent no-op, never an error, and never updates the
// existing row's fields. Returns whether a row was actually inserted.
func (s *Store) UpsertPost(ctx context.Context, p *Post) (bool, error) {
	linksJSON, _ := json.Marshal(p.LinkURLs)
	mediaJSON, _ := json.Marshal(p.MediaRefs)

	ingestedAt := p.IngestedAt
	if ingestedAt.IsZero() {
		ingestedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (external_id, text, author, platform, post_type,
			published_at, source_url, likes, shares, replies, quotes,
			link_urls, media_refs, raw_payload, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO NOTHING
	`, p.ExternalID, p.Text, p.Author, p.Platform, p.PostType,
		p.PublishedAt, p.SourceURL, p.Likes, p.Shares, p.Replies, p.Quotes,
		string(linksJSON), string(mediaJSON), p.RawPayload, ingestedAt)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetUnanalyzedPosts returns posts without a verdict, newest first. The
// limit caps per-run LLM spend.
func (s *Store) GetUnanalyzedPosts(ctx context.Context, limit int) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.external_id, p.text, p.author, p.platform, p.post_type,
			p.published_at, p.source_url, p.likes, p.shares, p.replies, p.quotes,
			p.link_urls, p.media_refs, p.raw_payload, p.ingested_at
		FROM posts p
		LEFT JOIN analysis_verdicts v ON p.external_id = v.post_id
		WHERE v.post_id IS NULL
		ORDER BY p.published_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPosts(rows)
}

// GetPost fetches a single post by external id
func (s *Store) GetPost(ctx context.Context, externalID string) (*Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.external_id, p.text, p.author, p.platform, p.post_type,
			p.published_at, p.source_url, p.likes, p.shares, p.replies, p.quotes,
			p.link_urls, p.media_refs, p.raw_payload, p.ingested_at
		FROM posts p WHERE p.external_id = ?
	`, externalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts, err := scanPosts(rows)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, sql.ErrNoRows
	}
	return &posts[0], nil
}

func scanPosts(rows *sql.Rows) ([]Post, error) {
	var posts []Post
	for rows.Next() {
		var p Post
		var linksJSON, mediaJSON string

		err := rows.Scan(
			&p.ExternalID, &p.Text, &p.Author, &p.Platform, &p.PostType,
			&p.PublishedAt, &p.SourceURL, &p.Likes, &p.Shares, &p.Replies, &p.Quotes,
			&linksJSON, &mediaJSON, &p.RawPayload, &p.IngestedAt,
		)
		if err != nil {
			return nil, err
		}

		json.Unmarshal([]byte(linksJSON), &p.LinkURLs)
		json.Unmarshal([]byte(mediaJSON), &p.MediaRefs)
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
