// Package media retrieves image bytes for a post's media attachments.
package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pledgewatch/pledgewatch/internal/store"
)

const defaultMaxImages = 4

// Image is a downloaded attachment ready for multimodal analysis
type Image struct {
	Bytes    []byte
	MIMEType string
}

// Resolver downloads post images. Video and gif attachments are noted and
// skipped; there is no frame extraction.
type Resolver struct {
	client    *http.Client
	maxImages int
}

// NewResolver creates a resolver with the given per-fetch timeout and
// per-post image cap. Zero values select the defaults (10s, 4 images).
func NewResolver(timeout time.Duration, maxImages int) *Resolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxImages <= 0 {
		maxImages = defaultMaxImages
	}
	return &Resolver{
		client:    &http.Client{Timeout: timeout},
		maxImages: maxImages,
	}
}

// Resolve downloads image attachments in order. A failed download skips
// that image and continues: partial media failure never blocks a post's
// analysis.
func (r *Resolver) Resolve(ctx context.Context, refs []store.MediaRef) []Image {
	var images []Image
	for _, ref := range refs {
		if len(images) >= r.maxImages {
			slog.Debug("image cap reached, skipping remaining media", "cap", r.maxImages)
			break
		}
		if ref.Type != "photo" && ref.Type != "image" {
			slog.Debug("skipping non-image media", "type", ref.Type, "url", ref.URL)
			continue
		}

		img, err := r.fetch(ctx, ref.URL)
		if err != nil {
			slog.Warn("image fetch failed, continuing without it", "url", ref.URL, "error", err)
			continue
		}
		images = append(images, img)
	}
	return images
}

func (r *Resolver) fetch(ctx context.Context, url string) (Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Image{}, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Image{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Image{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Image{}, err
	}

	mime := resp.Header.Get("Content-Type")
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return Image{}, fmt.Errorf("not an image: %s", mime)
	}

	return Image{Bytes: data, MIMEType: mime}, nil
}
