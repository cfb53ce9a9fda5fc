// Package articles fetches and cleans the content behind URLs referenced by
// posts.
package articles

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/pledgewatch/pledgewatch/internal/store"
)

// Sites routinely serve stripped-down or blocked pages to generic Go
// clients, so fetches go out with a desktop browser identity.
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

const defaultMaxChars = 15000

// Resolver turns a URL into cleaned plain text. Its job is purely fetch and
// clean; judging whether the result is useful belongs to the caller.
type Resolver struct {
	client   *http.Client
	maxChars int
}

// NewResolver creates a resolver with the given fetch timeout and body cap.
// Zero values select the defaults (15s, 15000 chars).
func NewResolver(timeout time.Duration, maxChars int) *Resolver {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	return &Resolver{
		client:   &http.Client{Timeout: timeout},
		maxChars: maxChars,
	}
}

// Resolve fetches and cleans one URL. Failures are a terminal outcome
// recorded on the returned article, never an error: the store caches either
// result so the URL is not retried every run.
func (r *Resolver) Resolve(ctx context.Context, url string) store.LinkedArticle {
	article := store.LinkedArticle{URL: url, FetchedAt: time.Now()}

	body, err := r.fetch(ctx, url)
	if err != nil {
		slog.Warn("article fetch failed", "url", url, "error", err)
		article.Status = store.ArticleStatusFailed
		article.FetchError = err.Error()
		return article
	}

	title, text := extractContent(body)
	article.Title = title
	article.BodyText = truncate(text, r.maxChars)
	article.WordCount = len(strings.Fields(article.BodyText))
	article.Status = store.ArticleStatusSuccess
	return article
}

func (r *Resolver) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	return io.ReadAll(resp.Body)
}

// extractContent pulls the title and the largest plausible content block out
// of an HTML page.
func extractContent(body []byte) (title, text string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", ""
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())

	for _, sel := range strippedSelectors {
		doc.Find(sel).Remove()
	}

	for _, sel := range contentSelectors {
		candidate := collapseWhitespace(doc.Find(sel).First().Text())
		if len(candidate) >= minContentChars {
			return title, candidate
		}
	}

	// No container matched; fall back to the whole body.
	return title, collapseWhitespace(doc.Find("body").Text())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
