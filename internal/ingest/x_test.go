package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pledgewatch/pledgewatch/internal/store"
)

const xPage = `{
  "data": [
    {
      "id": "1820000000000000001",
      "text": "Read the full story https://t.co/abc123",
      "author_id": "44196397",
      "created_at": "2026-08-21T09:15:00.000Z",
      "attachments": {"media_keys": ["3_111", "3_222"]},
      "entities": {"urls": [{"expanded_url": "https://news.example.org/full"}]},
      "public_metrics": {"like_count": 900, "retweet_count": 210, "reply_count": 55, "quote_count": 12}
    },
    {
      "id": "1820000000000000002",
      "text": "replying to the above",
      "author_id": "44196397",
      "created_at": "2026-08-21T10:00:00.000Z",
      "referenced_tweets": [{"type": "replied_to"}],
      "public_metrics": {"like_count": 1, "retweet_count": 0, "reply_count": 0, "quote_count": 0}
    }
  ],
  "includes": {
    "media": [
      {"media_key": "3_111", "type": "photo", "url": "https://pbs.twimg.com/media/one.jpg"},
      {"media_key": "3_222", "type": "video", "url": "https://video.twimg.com/two.mp4"}
    ],
    "users": [{"id": "44196397", "username": "examplefigure"}]
  }
}`

func TestXFetchAndNormalize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Contains(t, r.URL.Query().Get("expansions"), "attachments.media_keys")
		_, _ = w.Write([]byte(xPage))
	}))
	defer server.Close()

	src := NewXSource("tok", "from:examplefigure")
	src.baseURL = server.URL

	posts, err := src.FetchNewPosts(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	p := posts[0]
	assert.Equal(t, "x:1820000000000000001", p.ExternalID)
	assert.Equal(t, "examplefigure", p.Author)
	assert.Equal(t, "x", p.Platform)
	assert.Equal(t, store.PostTypeOriginal, p.PostType)
	assert.Equal(t, "https://x.com/examplefigure/status/1820000000000000001", p.SourceURL)
	assert.Equal(t, 900, p.Likes)
	assert.Equal(t, 210, p.Shares)
	assert.Equal(t, []string{"https://news.example.org/full"}, p.LinkURLs)
	require.Len(t, p.MediaRefs, 2)
	assert.Equal(t, "photo", p.MediaRefs[0].Type)
	assert.Equal(t, "video", p.MediaRefs[1].Type)

	assert.Equal(t, store.PostTypeReply, posts[1].PostType)
	assert.Empty(t, posts[1].MediaRefs)
}
