package articles

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pledgewatch/pledgewatch/internal/store"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// Hosts that are the platform itself or media CDNs, not linkable articles
var skippedHosts = map[string]bool{
	"x.com":             true,
	"twitter.com":       true,
	"t.co":              true,
	"pbs.twimg.com":     true,
	"video.twimg.com":   true,
	"instagram.com":     true,
	"www.instagram.com": true,
	"facebook.com":      true,
	"www.facebook.com":  true,
	"youtube.com":       true,
	"www.youtube.com":   true,
	"youtu.be":          true,
	"tiktok.com":        true,
	"www.tiktok.com":    true,
}

// ExtractURLs returns the deduplicated candidate article URLs for a post.
// Expanded links from source metadata come first: they are already
// canonicalized, while text-matched URLs may be shortened or clipped.
func ExtractURLs(p *store.Post) []string {
	seen := make(map[string]bool)
	var urls []string

	add := func(raw string) {
		raw = strings.TrimRight(raw, ".,;:!?)")
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
		if skippedHosts[host] || skippedHosts[strings.ToLower(u.Host)] {
			return
		}
		if seen[raw] {
			return
		}
		seen[raw] = true
		urls = append(urls, raw)
	}

	for _, link := range p.LinkURLs {
		add(link)
	}
	for _, match := range urlPattern.FindAllString(p.Text, -1) {
		add(match)
	}

	return urls
}
