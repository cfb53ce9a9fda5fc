// Package report renders verdicts into a reviewable HTML document.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/pledgewatch/pledgewatch/internal/store"
)

// Builder renders verdict reports
type Builder struct {
	template *template.Template
}

// New creates a new report builder
func New() (*Builder, error) {
	tmpl, err := template.New("report").Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &Builder{template: tmpl}, nil
}

// reportData is the template data structure
type reportData struct {
	Title   string
	Date    string
	Entries []entryData
	Stats   statsData
}

type entryData struct {
	Author      string
	Platform    string
	Text        string
	URL         string
	Flagged     bool
	Confidence  string
	Severity    string
	Concerns    []string
	Explanation string
	AnalyzedAt  string
}

type statsData struct {
	Total   int
	Flagged int
}

// Build renders the given verdicts, flagged first then newest first. The
// input slice is left untouched.
func (b *Builder) Build(in []store.VerdictWithPost) (string, error) {
	verdicts := make([]store.VerdictWithPost, len(in))
	copy(verdicts, in)
	sort.SliceStable(verdicts, func(i, j int) bool {
		if verdicts[i].Verdict.Flagged != verdicts[j].Verdict.Flagged {
			return verdicts[i].Verdict.Flagged
		}
		return verdicts[i].Verdict.AnalyzedAt.After(verdicts[j].Verdict.AnalyzedAt)
	})

	now := time.Now()
	data := reportData{
		Title:   "Analysis Report",
		Date:    now.Format("Monday, January 2 2006"),
		Entries: make([]entryData, len(verdicts)),
		Stats:   statsData{Total: len(verdicts)},
	}

	for i, vp := range verdicts {
		if vp.Verdict.Flagged {
			data.Stats.Flagged++
		}
		data.Entries[i] = entryData{
			Author:      vp.Post.Author,
			Platform:    vp.Post.Platform,
			Text:        truncate(vp.Post.Text, 500),
			URL:         vp.Post.SourceURL,
			Flagged:     vp.Verdict.Flagged,
			Confidence:  vp.Verdict.Confidence,
			Severity:    vp.Verdict.Severity,
			Concerns:    vp.Verdict.Concerns,
			Explanation: vp.Verdict.Explanation,
			AnalyzedAt:  vp.Verdict.AnalyzedAt.Format("2006-01-02 15:04"),
		}
	}

	var buf bytes.Buffer
	if err := b.template.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, sans-serif; max-width: 720px; margin: 2rem auto; color: #222; }
.entry { border: 1px solid #ddd; border-radius: 8px; padding: 1rem; margin-bottom: 1rem; }
.flagged { border-left: 4px solid #c0392b; }
.meta { color: #777; font-size: 0.85rem; }
.concerns { color: #c0392b; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">{{.Date}} &mdash; {{.Stats.Flagged}} flagged of {{.Stats.Total}} analyzed</p>
{{range .Entries}}
<div class="entry{{if .Flagged}} flagged{{end}}">
  <p class="meta">{{.Author}} on {{.Platform}} &mdash; analyzed {{.AnalyzedAt}}{{if .URL}} &mdash; <a href="{{.URL}}">source</a>{{end}}</p>
  <p>{{.Text}}</p>
  {{if .Flagged}}
  <p class="concerns"><strong>Flagged</strong> ({{.Confidence}} confidence, {{.Severity}} severity):
  {{range $i, $c := .Concerns}}{{if $i}}, {{end}}{{$c}}{{end}}</p>
  {{end}}
  {{if .Explanation}}<p>{{.Explanation}}</p>{{end}}
</div>
{{end}}
</body>
</html>
`
