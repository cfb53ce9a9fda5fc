package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pledgewatch/pledgewatch/internal/store"
)

type fakeSource struct {
	name  string
	posts []store.Post
	err   error
	since []*time.Time
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchNewPosts(_ context.Context, since *time.Time) ([]store.Post, error) {
	f.since = append(f.since, since)
	return f.posts, f.err
}

func newIngestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIngestorRunDeduplicates(t *testing.T) {
	st := newIngestStore(t)
	src := &fakeSource{name: "fake", posts: []store.Post{
		{ExternalID: "a", Text: "one", Platform: "x", PostType: store.PostTypeOriginal, PublishedAt: time.Now()},
		{ExternalID: "b", Text: "two", Platform: "x", PostType: store.PostTypeOriginal, PublishedAt: time.Now()},
	}}

	in := NewIngestor(st, src)

	summary, err := in.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Fetched)
	assert.Equal(t, 2, summary.Inserted)
	assert.Zero(t, summary.Errors)

	// First run has no sync marker; second passes the recorded one.
	require.Len(t, src.since, 1)
	assert.Nil(t, src.since[0])

	summary, err = in.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Fetched)
	assert.Zero(t, summary.Inserted)

	require.Len(t, src.since, 2)
	require.NotNil(t, src.since[1])
}

func TestIngestorSourceFailureIsIsolated(t *testing.T) {
	st := newIngestStore(t)
	bad := &fakeSource{name: "bad", err: errors.New("upstream down")}
	good := &fakeSource{name: "good", posts: []store.Post{
		{ExternalID: "g1", Text: "ok", Platform: "x", PostType: store.PostTypeOriginal, PublishedAt: time.Now()},
	}}

	in := NewIngestor(st, bad, good)

	summary, err := in.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.Errors)

	// Failed source's marker must not advance.
	last, err := st.GetLastSync(context.Background(), "bad")
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	last, err = st.GetLastSync(context.Background(), "good")
	require.NoError(t, err)
	assert.False(t, last.IsZero())
}
