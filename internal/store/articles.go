package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ResolverFunc fetches and cleans the content behind a URL. It returns a
// complete LinkedArticle whether the fetch succeeded or failed; the store
// persists either outcome so the URL is never retried indefinitely.
type ResolverFunc func(ctx context.Context, url string) LinkedArticle

// GetOrCreateArticle is a read-through cache keyed by (post_id, url). On a
// miss the resolver is invoked and its outcome persisted exactly once. If a
// concurrent caller wins the insert race, the loser's result is discarded
// and the winner's row returned.
func (s *Store) GetOrCreateArticle(ctx context.Context, postID, url string, resolve ResolverFunc) (*LinkedArticle, error) {
	if a, err := s.getArticle(ctx, postID, url); err == nil {
		return a, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	article := resolve(ctx, url)
	article.PostID = postID
	article.URL = url
	if article.FetchedAt.IsZero() {
		article.FetchedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO linked_articles (post_id, url, title, body_text, word_count,
			status, fetch_error, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(post_id, url) DO NOTHING
	`, article.PostID, article.URL, article.Title, article.BodyText,
		article.WordCount, article.Status, article.FetchError, article.FetchedAt)
	if err != nil {
		return nil, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Lost the race; return the row that won.
		return s.getArticle(ctx, postID, url)
	}
	return &article, nil
}

// DeleteArticle removes a cached article so it can be re-fetched. Articles
// are immutable otherwise.
func (s *Store) DeleteArticle(ctx context.Context, postID, url string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM linked_articles WHERE post_id = ? AND url = ?`, postID, url)
	return err
}

// GetArticlesForPost returns all cached articles for a post
func (s *Store) GetArticlesForPost(ctx context.Context, postID string) ([]LinkedArticle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT post_id, url, title, body_text, word_count, status, fetch_error, fetched_at
		FROM linked_articles WHERE post_id = ?
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []LinkedArticle
	for rows.Next() {
		var a LinkedArticle
		if err := rows.Scan(&a.PostID, &a.URL, &a.Title, &a.BodyText,
			&a.WordCount, &a.Status, &a.FetchError, &a.FetchedAt); err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func (s *Store) getArticle(ctx context.Context, postID, url string) (*LinkedArticle, error) {
	var a LinkedArticle
	err := s.db.QueryRowContext(ctx, `
		SELECT post_id, url, title, body_text, word_count, status, fetch_error, fetched_at
		FROM linked_articles WHERE post_id = ? AND url = ?
	`, postID, url).Scan(&a.PostID, &a.URL, &a.Title, &a.BodyText,
		&a.WordCount, &a.Status, &a.FetchError, &a.FetchedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
