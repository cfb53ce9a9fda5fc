package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testPost(id string, publishedAt time.Time) *Post {
	return &Post{
		ExternalID:  id,
		Text:        "post " + id,
		Author:      "someone",
		Platform:    "x",
		PostType:    PostTypeOriginal,
		PublishedAt: publishedAt,
		SourceURL:   "https://x.com/someone/status/" + id,
		Likes:       3,
	}
}

func TestUpsertPostIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := testPost("p1", time.Now())
	inserted, err := s.UpsertPost(ctx, p)
	require.NoError(t, err)
	require.True(t, inserted)

	// Second insert with different fields is a silent no-op.
	changed := testPost("p1", time.Now())
	changed.Text = "mutated"
	inserted, err = s.UpsertPost(ctx, changed)
	require.NoError(t, err)
	require.False(t, inserted)

	got, err := s.GetPost(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "post p1", got.Text)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.Posts)
}

func TestGetUnanalyzedPostsOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		_, err := s.UpsertPost(ctx, testPost(id, base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}

	require.NoError(t, s.UpsertVerdict(ctx, &Verdict{
		PostID: "mid", Flagged: false,
		Confidence: ConfidenceHigh, Severity: SeverityLow,
		AnalyzedAt: time.Now(),
	}))

	posts, err := s.GetUnanalyzedPosts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.Equal(t, "new", posts[0].ExternalID)
	require.Equal(t, "old", posts[1].ExternalID)

	posts, err = s.GetUnanalyzedPosts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "new", posts[0].ExternalID)
}

func TestUpsertVerdictReplacesWholesale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertPost(ctx, testPost("p1", time.Now()))
	require.NoError(t, err)

	has, err := s.HasVerdict(ctx, "p1")
	require.NoError(t, err)
	require.False(t, has)

	first := &Verdict{
		PostID:     "p1",
		Flagged:    true,
		Confidence: ConfidenceHigh,
		Severity:   SeverityHigh,
		Concerns:   []string{"incitement"},
		AnalyzedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.UpsertVerdict(ctx, first))

	for i := 0; i < 3; i++ {
		require.NoError(t, s.UpsertVerdict(ctx, &Verdict{
			PostID:     "p1",
			Flagged:    false,
			Confidence: ConfidenceLow,
			Severity:   SeverityUnknown,
			AnalyzedAt: time.Date(2026, 1, 2+i, 0, 0, 0, 0, time.UTC),
		}))
	}

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.Verdicts)

	v, err := s.GetVerdict(ctx, "p1")
	require.NoError(t, err)
	require.False(t, v.Flagged)
	require.Equal(t, ConfidenceLow, v.Confidence)
	require.Empty(t, v.Concerns) // replace, not merge
	require.Equal(t, time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC), v.AnalyzedAt.UTC())
}

func TestGetOrCreateArticleCachesBothOutcomes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertPost(ctx, testPost("p1", time.Now()))
	require.NoError(t, err)

	calls := 0
	resolve := func(ctx context.Context, url string) LinkedArticle {
		calls++
		return LinkedArticle{
			Title:     "An Article",
			BodyText:  "body text here",
			WordCount: 3,
			Status:    ArticleStatusSuccess,
		}
	}

	a1, err := s.GetOrCreateArticle(ctx, "p1", "https://example.com/a", resolve)
	require.NoError(t, err)
	a2, err := s.GetOrCreateArticle(ctx, "p1", "https://example.com/a", resolve)
	require.NoError(t, err)

	require.Equal(t, 1, calls)
	require.Equal(t, a1.BodyText, a2.BodyText)
	require.Equal(t, ArticleStatusSuccess, a2.Status)

	// A failed fetch is cached too and never re-resolved.
	failCalls := 0
	fail := func(ctx context.Context, url string) LinkedArticle {
		failCalls++
		return LinkedArticle{Status: ArticleStatusFailed, FetchError: "connection refused"}
	}
	_, err = s.GetOrCreateArticle(ctx, "p1", "https://example.com/dead", fail)
	require.NoError(t, err)
	got, err := s.GetOrCreateArticle(ctx, "p1", "https://example.com/dead", fail)
	require.NoError(t, err)
	require.Equal(t, 1, failCalls)
	require.Equal(t, ArticleStatusFailed, got.Status)
	require.Equal(t, "connection refused", got.FetchError)

	// Explicit deletion re-opens the fetch path.
	require.NoError(t, s.DeleteArticle(ctx, "p1", "https://example.com/dead"))
	_, err = s.GetOrCreateArticle(ctx, "p1", "https://example.com/dead", fail)
	require.NoError(t, err)
	require.Equal(t, 2, failCalls)
}

func TestLastSyncRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetLastSync(ctx, "junkipedia")
	require.NoError(t, err)
	require.True(t, got.IsZero())

	want := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetLastSync(ctx, "junkipedia", want))

	got, err = s.GetLastSync(ctx, "junkipedia")
	require.NoError(t, err)
	require.True(t, got.Equal(want))

	// Sync bookkeeping must never show up as content.
	posts, err := s.GetUnanalyzedPosts(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, posts)
}

func TestRecordFlagEventAccruesPledges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertPost(ctx, testPost("p1", time.Now()))
	require.NoError(t, err)

	_, err = s.CreatePledge(ctx, "donor1@example.com", 500)
	require.NoError(t, err)
	_, err = s.CreatePledge(ctx, "donor2@example.com", 250)
	require.NoError(t, err)

	require.NoError(t, s.RecordFlagEvent(ctx, "p1", time.Now()))
	require.NoError(t, s.RecordFlagEvent(ctx, "p1", time.Now()))

	pledges, err := s.ListPledges(ctx)
	require.NoError(t, err)
	require.Len(t, pledges, 2)
	require.EqualValues(t, 1000, pledges[0].AccruedCents)
	require.EqualValues(t, 500, pledges[1].AccruedCents)

	n, err := s.CountFlagEvents(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}
