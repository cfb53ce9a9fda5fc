package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pledgewatch/pledgewatch/internal/store"
)

const xBaseURL = "https://api.x.com/2"

// XSource pulls posts from the X recent-search API
type XSource struct {
	client      *http.Client
	baseURL     string
	bearerToken string
	query       string
}

// NewXSource creates a source for the given search query
func NewXSource(bearerToken, query string) *XSource {
	return &XSource{
		client:      &http.Client{Timeout: 30 * time.Second},
		baseURL:     xBaseURL,
		bearerToken: bearerToken,
		query:       query,
	}
}

// Name implements Source
func (x *XSource) Name() string { return "x" }

type xResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Text        string `json:"text"`
		AuthorID    string `json:"author_id"`
		CreatedAt   string `json:"created_at"`
		Attachments struct {
			MediaKeys []string `json:"media_keys"`
		} `json:"attachments"`
		ReferencedTweets []struct {
			Type string `json:"type"`
		} `json:"referenced_tweets"`
		Entities struct {
			URLs []struct {
				ExpandedURL string `json:"expanded_url"`
			} `json:"urls"`
		} `json:"entities"`
		PublicMetrics struct {
			LikeCount    int `json:"like_count"`
			RetweetCount int `json:"retweet_count"`
			ReplyCount   int `json:"reply_count"`
			QuoteCount   int `json:"quote_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Includes struct {
		Media []struct {
			MediaKey string `json:"media_key"`
			Type     string `json:"type"`
			URL      string `json:"url"`
		} `json:"media"`
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	} `json:"includes"`
}

// FetchNewPosts queries recent search and normalizes tweets plus their
// media and URL entities.
func (x *XSource) FetchNewPosts(ctx context.Context, since *time.Time) ([]store.Post, error) {
	q := url.Values{}
	q.Set("query", x.query)
	q.Set("max_results", "100")
	q.Set("tweet.fields", "created_at,public_metrics,entities,referenced_tweets,author_id")
	q.Set("expansions", "attachments.media_keys,author_id")
	q.Set("media.fields", "url,type")
	q.Set("user.fields", "username")
	if since != nil {
		q.Set("start_time", since.UTC().Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, x.baseURL+"/tweets/search/recent?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+x.bearerToken)

	resp, err := x.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("x request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("x read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("x status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var parsed xResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("x decode: %w", err)
	}

	return normalizeXResponse(&parsed), nil
}

// normalizeXResponse flattens tweets and their expansion includes into
// canonical posts.
func normalizeXResponse(r *xResponse) []store.Post {
	mediaByKey := make(map[string]store.MediaRef)
	for _, m := range r.Includes.Media {
		mediaByKey[m.MediaKey] = store.MediaRef{URL: m.URL, Type: m.Type}
	}
	userByID := make(map[string]string)
	for _, u := range r.Includes.Users {
		userByID[u.ID] = u.Username
	}

	posts := make([]store.Post, 0, len(r.Data))
	for _, tweet := range r.Data {
		p := store.Post{
			ExternalID: "x:" + tweet.ID,
			Text:       tweet.Text,
			Author:     userByID[tweet.AuthorID],
			Platform:   "x",
			PostType:   store.PostTypeOriginal,
			Likes:      tweet.PublicMetrics.LikeCount,
			Shares:     tweet.PublicMetrics.RetweetCount,
			Replies:    tweet.PublicMetrics.ReplyCount,
			Quotes:     tweet.PublicMetrics.QuoteCount,
			IngestedAt: time.Now(),
		}
		if raw, err := json.Marshal(tweet); err == nil {
			p.RawPayload = string(raw)
		}
		if t, err := time.Parse(time.RFC3339, tweet.CreatedAt); err == nil {
			p.PublishedAt = t
		}
		if p.Author != "" {
			p.SourceURL = fmt.Sprintf("https://x.com/%s/status/%s", p.Author, tweet.ID)
		}

		for _, ref := range tweet.ReferencedTweets {
			switch ref.Type {
			case "replied_to":
				p.PostType = store.PostTypeReply
			case "retweeted":
				p.PostType = store.PostTypeRepost
			case "quoted":
				p.PostType = store.PostTypeQuote
			}
		}

		for _, u := range tweet.Entities.URLs {
			if u.ExpandedURL != "" {
				p.LinkURLs = append(p.LinkURLs, u.ExpandedURL)
			}
		}
		for _, key := range tweet.Attachments.MediaKeys {
			if ref, ok := mediaByKey[key]; ok && ref.URL != "" {
				p.MediaRefs = append(p.MediaRefs, ref)
			}
		}

		posts = append(posts, p)
	}
	return posts
}
