// Package analysis drives the classification pipeline: select unanalyzed
// posts, resolve their articles and media, classify, persist.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pledgewatch/pledgewatch/internal/articles"
	"github.com/pledgewatch/pledgewatch/internal/media"
	"github.com/pledgewatch/pledgewatch/internal/store"
)

// minArticleWords is the usefulness threshold: a resolved article at or
// below it is treated as "no meaningful content" and excluded from
// classification input.
const minArticleWords = 10

// ArticleResolver fetches and cleans one URL
type ArticleResolver interface {
	Resolve(ctx context.Context, url string) store.LinkedArticle
}

// MediaResolver downloads a post's image attachments
type MediaResolver interface {
	Resolve(ctx context.Context, refs []store.MediaRef) []media.Image
}

// Classifier produces a verdict for a post plus its resolved content
type Classifier interface {
	Classify(ctx context.Context, post *store.Post, articles []store.LinkedArticle, images []media.Image) (*store.Verdict, error)
}

// FlagSink receives exactly one event per genuinely new flagged post. The
// pledge ledger consumes these; the orchestrator never computes amounts.
type FlagSink interface {
	PostFlagged(ctx context.Context, postID string) error
}

// Summary is a run's sole return value
type Summary struct {
	Analyzed int `json:"analyzed"`
	Flagged  int `json:"flagged"`
	Errors   int `json:"errors"`
}

// Orchestrator runs the pipeline over batches of unanalyzed posts
type Orchestrator struct {
	store      *store.Store
	articles   ArticleResolver
	media      MediaResolver
	classifier Classifier
	flags      FlagSink

	batchLimit int
	pace       time.Duration
}

// New creates an orchestrator. flags may be nil when no billing consumer is
// wired (e.g. dry runs).
func New(st *store.Store, ar ArticleResolver, mr MediaResolver, cl Classifier, flags FlagSink, batchLimit int, pace time.Duration) *Orchestrator {
	if batchLimit <= 0 {
		batchLimit = 25
	}
	return &Orchestrator{
		store:      st,
		articles:   ar,
		media:      mr,
		classifier: cl,
		flags:      flags,
		batchLimit: batchLimit,
		pace:       pace,
	}
}

// Run processes one batch of unanalyzed posts sequentially, pacing between
// posts to respect the shared model rate limit. A failure on one post is
// counted and the loop continues; only a failure to select the batch at all
// propagates. The run always ends with a summary.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	posts, err := o.store.GetUnanalyzedPosts(ctx, o.batchLimit)
	if err != nil {
		return summary, fmt.Errorf("select unanalyzed posts: %w", err)
	}
	slog.Info("analysis run starting", "posts", len(posts))

	for i := range posts {
		post := &posts[i]

		flagged, err := o.processPost(ctx, post)
		if err != nil {
			slog.Error("post processing failed", "post", post.ExternalID, "error", err)
			summary.Errors++
		} else {
			summary.Analyzed++
			if flagged {
				summary.Flagged++
			}
		}

		if i < len(posts)-1 && o.pace > 0 {
			select {
			case <-time.After(o.pace):
			case <-ctx.Done():
				return summary, ctx.Err()
			}
		}
	}

	slog.Info("analysis run complete",
		"analyzed", summary.Analyzed, "flagged", summary.Flagged, "errors", summary.Errors)
	return summary, nil
}

// processPost handles one post end to end. The reported flagged value is
// true only when a flagged verdict was persisted.
func (o *Orchestrator) processPost(ctx context.Context, post *store.Post) (bool, error) {
	resolved, err := o.resolveArticles(ctx, post)
	if err != nil {
		return false, err
	}

	var meaningful []store.LinkedArticle
	for _, a := range resolved {
		if a.Status == store.ArticleStatusSuccess && a.WordCount > minArticleWords {
			meaningful = append(meaningful, a)
		}
	}

	images := o.media.Resolve(ctx, post.MediaRefs)

	verdict, err := o.classifier.Classify(ctx, post, meaningful, images)
	if err != nil {
		return false, fmt.Errorf("classify: %w", err)
	}

	hadVerdict, err := o.store.HasVerdict(ctx, post.ExternalID)
	if err != nil {
		return false, fmt.Errorf("check existing verdict: %w", err)
	}

	if err := o.store.UpsertVerdict(ctx, verdict); err != nil {
		return false, fmt.Errorf("persist verdict: %w", err)
	}

	// Billing fires on genuinely new flags only, never on a re-analysis
	// overwrite. A sink failure does not unwind the verdict; it is logged
	// for manual reconciliation.
	if verdict.Flagged && !hadVerdict && o.flags != nil {
		if err := o.flags.PostFlagged(ctx, post.ExternalID); err != nil {
			slog.Error("flag event delivery failed", "post", post.ExternalID, "error", err)
		}
	}

	return verdict.Flagged, nil
}

// resolveArticles resolves every candidate URL through the store's
// read-through cache. URLs fan out concurrently: fetches are independent
// and the store remains the single serialization point.
func (o *Orchestrator) resolveArticles(ctx context.Context, post *store.Post) ([]store.LinkedArticle, error) {
	urls := articles.ExtractURLs(post)
	if len(urls) == 0 {
		return nil, nil
	}

	resolved := make([]store.LinkedArticle, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	for i, url := range urls {
		g.Go(func() error {
			a, err := o.store.GetOrCreateArticle(gctx, post.ExternalID, url, o.articles.Resolve)
			if err != nil {
				return fmt.Errorf("article cache %s: %w", url, err)
			}
			resolved[i] = *a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resolved, nil
}
