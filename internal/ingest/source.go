// Package ingest pulls posts from upstream feeds and normalizes them into
// canonical Post records at the boundary, so source-specific payload shapes
// never leak into the rest of the pipeline.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pledgewatch/pledgewatch/internal/store"
)

// Source is a pull interface over an upstream feed. Implementations must
// yield posts with globally unique, stable external IDs.
type Source interface {
	Name() string
	FetchNewPosts(ctx context.Context, since *time.Time) ([]store.Post, error)
}

// Summary reports one ingest run
type Summary struct {
	Fetched  int
	Inserted int
	Errors   int
}

// Ingestor runs all configured sources and upserts their posts
type Ingestor struct {
	store   *store.Store
	sources []Source
}

// NewIngestor creates an ingestor over the given sources
func NewIngestor(st *store.Store, sources ...Source) *Ingestor {
	return &Ingestor{store: st, sources: sources}
}

// Run pulls every source once. Duplicate posts are silent no-ops. The
// per-source sync marker only advances after a fully successful pull, so a
// mid-pull failure re-fetches that window next time instead of dropping it.
func (in *Ingestor) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	for _, src := range in.sources {
		lastSync, err := in.store.GetLastSync(ctx, src.Name())
		if err != nil {
			return summary, fmt.Errorf("get last sync for %s: %w", src.Name(), err)
		}

		var since *time.Time
		if !lastSync.IsZero() {
			since = &lastSync
		}

		started := time.Now()
		posts, err := src.FetchNewPosts(ctx, since)
		if err != nil {
			slog.Error("source fetch failed", "source", src.Name(), "error", err)
			summary.Errors++
			continue
		}

		inserted := 0
		upsertFailed := false
		for i := range posts {
			ok, err := in.store.UpsertPost(ctx, &posts[i])
			if err != nil {
				slog.Error("post upsert failed", "source", src.Name(), "post", posts[i].ExternalID, "error", err)
				summary.Errors++
				upsertFailed = true
				continue
			}
			if ok {
				inserted++
			}
		}

		summary.Fetched += len(posts)
		summary.Inserted += inserted

		if !upsertFailed {
			if err := in.store.SetLastSync(ctx, src.Name(), started); err != nil {
				slog.Error("failed to record last sync", "source", src.Name(), "error", err)
				summary.Errors++
			}
		}

		slog.Info("source ingested", "source", src.Name(), "fetched", len(posts), "inserted", inserted)
	}

	return summary, nil
}
