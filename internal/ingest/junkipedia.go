package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pledgewatch/pledgewatch/internal/store"
)

const junkipediaBaseURL = "https://www.junkipedia.org/api/v1"

// JunkipediaSource pulls posts from Junkipedia channel feeds
type JunkipediaSource struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	channelIDs []string
	maxPages   int
}

// NewJunkipediaSource creates a source over the given channel IDs
func NewJunkipediaSource(apiKey string, channelIDs []string, maxPages int) *JunkipediaSource {
	if maxPages <= 0 {
		maxPages = 5
	}
	return &JunkipediaSource{
		client:     &http.Client{Timeout: 30 * time.Second},
		baseURL:    junkipediaBaseURL,
		apiKey:     apiKey,
		channelIDs: channelIDs,
		maxPages:   maxPages,
	}
}

// Name implements Source
func (j *JunkipediaSource) Name() string { return "junkipedia" }

// FetchNewPosts pages through the posts endpoint and normalizes each item
func (j *JunkipediaSource) FetchNewPosts(ctx context.Context, since *time.Time) ([]store.Post, error) {
	var posts []store.Post

	for page := 1; page <= j.maxPages; page++ {
		items, hasMore, err := j.fetchPage(ctx, since, page)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			posts = append(posts, normalizeJunkipediaItem(item))
		}
		if !hasMore {
			break
		}
	}

	return posts, nil
}

func (j *JunkipediaSource) fetchPage(ctx context.Context, since *time.Time, page int) ([]junkipediaItem, bool, error) {
	q := url.Values{}
	q.Set("channel_ids", strings.Join(j.channelIDs, ","))
	q.Set("page", strconv.Itoa(page))
	if since != nil {
		q.Set("published_at_from", since.UTC().Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.baseURL+"/posts?"+q.Encode(), nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+j.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("junkipedia request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, false, fmt.Errorf("junkipedia status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var envelope struct {
		Data []junkipediaItem `json:"data"`
		Meta struct {
			NextPage *int `json:"next_page"`
		} `json:"meta"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, false, fmt.Errorf("junkipedia decode: %w", err)
	}

	return envelope.Data, envelope.Meta.NextPage != nil, nil
}

// junkipediaItem mirrors only the envelope; attributes are deliberately
// loose because post_data shapes differ per upstream platform.
type junkipediaItem struct {
	ID         string `json:"id"`
	Attributes struct {
		PublishedAt      string          `json:"published_at"`
		URL              string          `json:"url"`
		Platform         string          `json:"platform"`
		Channel          json.RawMessage `json:"channel"`
		PostData         json.RawMessage `json:"post_data"`
		SearchDataFields json.RawMessage `json:"search_data_fields"`
		EngagementData   json.RawMessage `json:"engagement_data"`
	} `json:"attributes"`
	raw json.RawMessage
}

func (it *junkipediaItem) UnmarshalJSON(data []byte) error {
	type alias junkipediaItem
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*it = junkipediaItem(a)
	it.raw = append(json.RawMessage(nil), data...)
	return nil
}

// normalizeJunkipediaItem maps one heterogeneous Junkipedia payload into the
// canonical Post. All field probing happens here, once, at ingestion time.
func normalizeJunkipediaItem(item junkipediaItem) store.Post {
	attrs := item.Attributes

	p := store.Post{
		ExternalID: "junkipedia:" + item.ID,
		Platform:   attrs.Platform,
		SourceURL:  attrs.URL,
		PostType:   store.PostTypeOriginal,
		RawPayload: string(item.raw),
		IngestedAt: time.Now(),
	}
	if p.Platform == "" {
		p.Platform = "junkipedia"
	}

	if t, err := time.Parse(time.RFC3339, attrs.PublishedAt); err == nil {
		p.PublishedAt = t
	}

	var channel struct {
		ChannelData struct {
			AccountName string `json:"account_name"`
		} `json:"channel_data"`
	}
	json.Unmarshal(attrs.Channel, &channel)
	p.Author = channel.ChannelData.AccountName

	var search struct {
		SanitizedText string `json:"sanitized_text"`
		Description   string `json:"description"`
	}
	json.Unmarshal(attrs.SearchDataFields, &search)

	var postData struct {
		Text          string `json:"text"`
		Message       string `json:"message"`
		IsReply       bool   `json:"is_reply"`
		IsRepost      bool   `json:"is_repost"`
		IsQuote       bool   `json:"is_quote"`
		ExpandedLinks []struct {
			ExpandedURL string `json:"expanded_url"`
		} `json:"expanded_links"`
		Media []struct {
			URL  string `json:"url"`
			Type string `json:"type"`
		} `json:"media"`
	}
	json.Unmarshal(attrs.PostData, &postData)

	switch {
	case search.SanitizedText != "":
		p.Text = search.SanitizedText
	case postData.Text != "":
		p.Text = postData.Text
	case postData.Message != "":
		p.Text = postData.Message
	default:
		p.Text = search.Description
	}

	switch {
	case postData.IsReply:
		p.PostType = store.PostTypeReply
	case postData.IsQuote:
		p.PostType = store.PostTypeQuote
	case postData.IsRepost:
		p.PostType = store.PostTypeRepost
	}

	for _, link := range postData.ExpandedLinks {
		if link.ExpandedURL != "" {
			p.LinkURLs = append(p.LinkURLs, link.ExpandedURL)
		}
	}
	for _, m := range postData.Media {
		if m.URL != "" {
			p.MediaRefs = append(p.MediaRefs, store.MediaRef{URL: m.URL, Type: m.Type})
		}
	}

	var engagement struct {
		Likes    int `json:"likes"`
		Shares   int `json:"shares"`
		Comments int `json:"comments"`
	}
	json.Unmarshal(attrs.EngagementData, &engagement)
	p.Likes = max(engagement.Likes, 0)
	p.Shares = max(engagement.Shares, 0)
	p.Replies = max(engagement.Comments, 0)

	return p
}
