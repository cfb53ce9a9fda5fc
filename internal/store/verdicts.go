package store

import (
	"context"
	"encoding/json"
)

// UpsertVerdict inserts or wholesale-replaces the verdict for a post.
// Replace, not merge: a re-analysis overwrites every field.
func (s *Store) UpsertVerdict(ctx context.Context, v *Verdict) error {
	concernsJSON, _ := json.Marshal(v.Concerns)
	recsJSON, _ := json.Marshal(v.Recommendations)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_verdicts (post_id, flagged, confidence, severity,
			concerns, explanation, recommendations,
			text_analysis, article_analysis, visual_analysis, combined_analysis,
			articles_considered, images_considered, analyzed_at, raw_model_output)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(post_id) DO UPDATE SET
			flagged = excluded.flagged,
			confidence = excluded.confidence,
			severity = excluded.severity,
			concerns = excluded.concerns,
			explanation = excluded.explanation,
			recommendations = excluded.recommendations,
			text_analysis = excluded.text_analysis,
			article_analysis = excluded.article_analysis,
			visual_analysis = excluded.visual_analysis,
			combined_analysis = excluded.combined_analysis,
			articles_considered = excluded.articles_considered,
			images_considered = excluded.images_considered,
			analyzed_at = excluded.analyzed_at,
			raw_model_output = excluded.raw_model_output
	`, v.PostID, v.Flagged, v.Confidence, v.Severity,
		string(concernsJSON), v.Explanation, string(recsJSON),
		v.TextAnalysis, v.ArticleAnalysis, v.VisualAnalysis, v.CombinedAnalysis,
		v.ArticlesConsidered, v.ImagesConsidered, v.AnalyzedAt, v.RawModelOutput)

	return err
}

// HasVerdict reports whether a post already has a verdict. The orchestrator
// uses this before persisting to tell a genuinely new flag from a
// re-analysis overwrite.
func (s *Store) HasVerdict(ctx context.Context, postID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM analysis_verdicts WHERE post_id = ?)`, postID).Scan(&exists)
	return exists, err
}

// GetVerdict returns the verdict for a post, or sql.ErrNoRows
func (s *Store) GetVerdict(ctx context.Context, postID string) (*Verdict, error) {
	var v Verdict
	var concernsJSON, recsJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT post_id, flagged, confidence, severity, concerns, explanation,
			recommendations, text_analysis, article_analysis, visual_analysis,
			combined_analysis, articles_considered, images_considered,
			analyzed_at, raw_model_output
		FROM analysis_verdicts WHERE post_id = ?
	`, postID).Scan(&v.PostID, &v.Flagged, &v.Confidence, &v.Severity,
		&concernsJSON, &v.Explanation, &recsJSON,
		&v.TextAnalysis, &v.ArticleAnalysis, &v.VisualAnalysis, &v.CombinedAnalysis,
		&v.ArticlesConsidered, &v.ImagesConsidered, &v.AnalyzedAt, &v.RawModelOutput)
	if err != nil {
		return nil, err
	}
	json.Unmarshal([]byte(concernsJSON), &v.Concerns)
	json.Unmarshal([]byte(recsJSON), &v.Recommendations)
	return &v, nil
}

// ListVerdicts returns verdicts joined with their posts, newest analysis
// first, for the export command.
func (s *Store) ListVerdicts(ctx context.Context, limit int) ([]VerdictWithPost, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.external_id, p.text, p.author, p.platform, p.post_type,
			p.published_at, p.source_url, p.likes, p.shares, p.replies, p.quotes,
			p.link_urls, p.media_refs, p.raw_payload, p.ingested_at,
			v.flagged, v.confidence, v.severity, v.concerns, v.explanation,
			v.recommendations, v.text_analysis, v.article_analysis,
			v.visual_analysis, v.combined_analysis,
			v.articles_considered, v.images_considered, v.analyzed_at, v.raw_model_output
		FROM analysis_verdicts v
		JOIN posts p ON p.external_id = v.post_id
		ORDER BY v.analyzed_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []VerdictWithPost
	for rows.Next() {
		var p Post
		var v Verdict
		var linksJSON, mediaJSON, concernsJSON, recsJSON string

		err := rows.Scan(
			&p.ExternalID, &p.Text, &p.Author, &p.Platform, &p.PostType,
			&p.PublishedAt, &p.SourceURL, &p.Likes, &p.Shares, &p.Replies, &p.Quotes,
			&linksJSON, &mediaJSON, &p.RawPayload, &p.IngestedAt,
			&v.Flagged, &v.Confidence, &v.Severity, &concernsJSON, &v.Explanation,
			&recsJSON, &v.TextAnalysis, &v.ArticleAnalysis,
			&v.VisualAnalysis, &v.CombinedAnalysis,
			&v.ArticlesConsidered, &v.ImagesConsidered, &v.AnalyzedAt, &v.RawModelOutput,
		)
		if err != nil {
			return nil, err
		}

		json.Unmarshal([]byte(linksJSON), &p.LinkURLs)
		json.Unmarshal([]byte(mediaJSON), &p.MediaRefs)
		json.Unmarshal([]byte(concernsJSON), &v.Concerns)
		json.Unmarshal([]byte(recsJSON), &v.Recommendations)
		v.PostID = p.ExternalID

		results = append(results, VerdictWithPost{Post: p, Verdict: v})
	}

	return results, rows.Err()
}

// Stats returns row counts for the stats command
func (s *Store) Stats(ctx context.Context) (*Counts, error) {
	var c Counts
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM posts),
			(SELECT COUNT(*) FROM analysis_verdicts),
			(SELECT COUNT(*) FROM analysis_verdicts WHERE flagged = 1),
			(SELECT COUNT(*) FROM linked_articles)
	`)
	if err := row.Scan(&c.Posts, &c.Verdicts, &c.Flagged, &c.Articles); err != nil {
		return nil, err
	}
	return &c, nil
}
