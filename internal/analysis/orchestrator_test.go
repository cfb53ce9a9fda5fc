package analysis

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pledgewatch/pledgewatch/internal/media"
	"github.com/pledgewatch/pledgewatch/internal/store"
)

type fakeArticleResolver struct {
	byURL map[string]store.LinkedArticle
	calls int
}

func (f *fakeArticleResolver) Resolve(_ context.Context, url string) store.LinkedArticle {
	f.calls++
	if a, ok := f.byURL[url]; ok {
		return a
	}
	return store.LinkedArticle{Status: store.ArticleStatusFailed, FetchError: "not found"}
}

type fakeMediaResolver struct {
	images []media.Image
}

func (f *fakeMediaResolver) Resolve(_ context.Context, refs []store.MediaRef) []media.Image {
	if len(refs) == 0 {
		return nil
	}
	return f.images
}

type fakeClassifier struct {
	flagPosts map[string]bool
	failPosts map[string]bool
	seen      []classifyCall
}

type classifyCall struct {
	postID   string
	articles int
	images   int
}

func (f *fakeClassifier) Classify(_ context.Context, post *store.Post, arts []store.LinkedArticle, images []media.Image) (*store.Verdict, error) {
	f.seen = append(f.seen, classifyCall{postID: post.ExternalID, articles: len(arts), images: len(images)})
	if f.failPosts[post.ExternalID] {
		return nil, errors.New("model unavailable")
	}
	return &store.Verdict{
		PostID:             post.ExternalID,
		Flagged:            f.flagPosts[post.ExternalID],
		Confidence:         store.ConfidenceHigh,
		Severity:           store.SeverityLow,
		ArticlesConsidered: len(arts),
		ImagesConsidered:   len(images),
		AnalyzedAt:         time.Now(),
	}, nil
}

type fakeSink struct {
	events []string
	err    error
}

func (f *fakeSink) PostFlagged(_ context.Context, postID string) error {
	f.events = append(f.events, postID)
	return f.err
}

func newAnalysisStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "analysis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedPost(t *testing.T, s *store.Store, id, text string, publishedAt time.Time) {
	t.Helper()
	_, err := s.UpsertPost(context.Background(), &store.Post{
		ExternalID:  id,
		Text:        text,
		Platform:    "x",
		PostType:    store.PostTypeOriginal,
		PublishedAt: publishedAt,
	})
	require.NoError(t, err)
}

func TestRunSinglePostWithArticle(t *testing.T) {
	s := newAnalysisStore(t)
	seedPost(t, s, "p1", "check this out https://example.com/a", time.Now())

	resolver := &fakeArticleResolver{byURL: map[string]store.LinkedArticle{
		"https://example.com/a": {
			Title:     "A",
			BodyText:  strings.Repeat("word ", 450),
			WordCount: 450,
			Status:    store.ArticleStatusSuccess,
		},
	}}
	cl := &fakeClassifier{}

	o := New(s, resolver, &fakeMediaResolver{}, cl, nil, 10, 0)
	summary, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Analyzed: 1, Flagged: 0, Errors: 0}, summary)

	require.Len(t, cl.seen, 1)
	assert.Equal(t, 1, cl.seen[0].articles)

	v, err := s.GetVerdict(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, v.ArticlesConsidered)
	assert.False(t, v.Flagged)
}

func TestRunFiltersUselessArticles(t *testing.T) {
	s := newAnalysisStore(t)
	seedPost(t, s, "p1", "https://example.com/thin and https://example.com/dead", time.Now())

	resolver := &fakeArticleResolver{byURL: map[string]store.LinkedArticle{
		"https://example.com/thin": {
			BodyText: "too thin", WordCount: 2, Status: store.ArticleStatusSuccess,
		},
		// /dead resolves to a failed fetch via the fake's default
	}}
	cl := &fakeClassifier{}

	o := New(s, resolver, &fakeMediaResolver{}, cl, nil, 10, 0)
	_, err := o.Run(context.Background())
	require.NoError(t, err)

	// Thin and failed articles are resolved and cached but excluded from
	// the classification input.
	require.Len(t, cl.seen, 1)
	assert.Equal(t, 0, cl.seen[0].articles)

	cached, err := s.GetArticlesForPost(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}

func TestRunIsolation(t *testing.T) {
	s := newAnalysisStore(t)
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 5; i++ {
		seedPost(t, s, fmt.Sprintf("p%d", i), "plain text post", base.Add(time.Duration(i)*time.Minute))
	}

	cl := &fakeClassifier{failPosts: map[string]bool{"p3": true}}
	o := New(s, &fakeArticleResolver{}, &fakeMediaResolver{}, cl, nil, 10, 0)

	summary, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Analyzed: 4, Flagged: 0, Errors: 1}, summary)

	for _, id := range []string{"p1", "p2", "p4", "p5"} {
		has, err := s.HasVerdict(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, has, id)
	}
	has, err := s.HasVerdict(context.Background(), "p3")
	require.NoError(t, err)
	assert.False(t, has)

	// The failed post stays unanalyzed and is re-selected next run.
	cl.failPosts = nil
	summary, err = o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Analyzed: 1, Flagged: 0, Errors: 0}, summary)
}

func TestBillingFiresOncePerNewFlag(t *testing.T) {
	s := newAnalysisStore(t)
	seedPost(t, s, "p1", "flagged content", time.Now())

	sink := &fakeSink{}
	cl := &fakeClassifier{flagPosts: map[string]bool{"p1": true}}
	o := New(s, &fakeArticleResolver{}, &fakeMediaResolver{}, cl, sink, 10, 0)

	summary, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Analyzed: 1, Flagged: 1, Errors: 0}, summary)
	assert.Equal(t, []string{"p1"}, sink.events)

	// Force a re-analysis of the same post: overwrite, no second event.
	posts, err := s.GetUnanalyzedPosts(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, posts)

	post, err := s.GetPost(context.Background(), "p1")
	require.NoError(t, err)
	flagged, err := o.processPost(context.Background(), post)
	require.NoError(t, err)
	assert.True(t, flagged)
	assert.Equal(t, []string{"p1"}, sink.events, "re-analysis must not re-bill")

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Verdicts)
}

func TestMediaFlowsIntoClassification(t *testing.T) {
	s := newAnalysisStore(t)
	_, err := s.UpsertPost(context.Background(), &store.Post{
		ExternalID:  "p1",
		Text:        "look at this",
		Platform:    "x",
		PostType:    store.PostTypeOriginal,
		PublishedAt: time.Now(),
		MediaRefs: []store.MediaRef{
			{URL: "https://cdn.example.org/1.jpg", Type: "photo"},
			{URL: "https://cdn.example.org/2.jpg", Type: "photo"},
			{URL: "https://cdn.example.org/3.jpg", Type: "photo"},
		},
	})
	require.NoError(t, err)

	// Two of three downloads succeeded upstream.
	mr := &fakeMediaResolver{images: []media.Image{
		{Bytes: []byte{1}, MIMEType: "image/jpeg"},
		{Bytes: []byte{2}, MIMEType: "image/jpeg"},
	}}
	cl := &fakeClassifier{}

	o := New(s, &fakeArticleResolver{}, mr, cl, nil, 10, 0)
	_, err = o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, cl.seen, 1)
	assert.Equal(t, 2, cl.seen[0].images)

	v, err := s.GetVerdict(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, v.ImagesConsidered)
}

func TestSelectFailurePropagates(t *testing.T) {
	s := newAnalysisStore(t)
	require.NoError(t, s.Close()) // closed store: the select itself fails

	o := New(s, &fakeArticleResolver{}, &fakeMediaResolver{}, &fakeClassifier{}, nil, 10, 0)
	_, err := o.Run(context.Background())
	require.Error(t, err)
}
