// Package classifier turns a post plus its resolved articles and images
// into a single analysis verdict via an LLM.
package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/pledgewatch/pledgewatch/internal/media"
	"github.com/pledgewatch/pledgewatch/internal/store"
)

// Part is one element of a multimodal model request: either text or an
// image attachment.
type Part struct {
	Text       string
	ImageBytes []byte
	ImageMIME  string
}

// Provider defines the interface for LLM providers
type Provider interface {
	Generate(ctx context.Context, parts []Part) (string, error)
	Name() string
}

// Engine composes model requests and coerces responses into verdicts. It
// has no side effects; persistence belongs to the orchestrator.
type Engine struct {
	provider Provider
}

// New creates an engine backed by the given provider
func New(provider Provider) *Engine {
	return &Engine{provider: provider}
}

// Classify produces one verdict for a post. Articles passed in should
// already be filtered to meaningful content; the engine includes whatever it
// is given. A transport-level provider failure is returned as an error. An
// unparseable model response is not an error: it becomes the deterministic
// low-confidence fallback verdict, which the caller persists like any other
// so the post is not re-billed against the model quota every run.
func (e *Engine) Classify(ctx context.Context, post *store.Post, articles []store.LinkedArticle, images []media.Image) (*store.Verdict, error) {
	parts := BuildParts(post, articles, images)

	raw, err := e.provider.Generate(ctx, parts)
	if err != nil {
		return nil, fmt.Errorf("%s generate: %w", e.provider.Name(), err)
	}

	verdict := parseModelOutput(raw)
	verdict.PostID = post.ExternalID
	verdict.ArticlesConsidered = len(articles)
	verdict.ImagesConsidered = len(images)
	verdict.AnalyzedAt = time.Now()
	verdict.RawModelOutput = raw
	return &verdict, nil
}
