package store

import "time"

// Post type values
const (
	PostTypeOriginal = "original"
	PostTypeReply    = "reply"
	PostTypeRepost   = "repost"
	PostTypeQuote    = "quote"
)

// Article fetch outcomes
const (
	ArticleStatusSuccess = "success"
	ArticleStatusFailed  = "failed"
)

// Verdict confidence values
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Verdict severity values
const (
	SeverityHigh    = "high"
	SeverityMedium  = "medium"
	SeverityLow     = "low"
	SeverityUnknown = "unknown"
)

// MediaRef points at a media attachment on a post
type MediaRef struct {
	URL  string `json:"url"`
	Type string `json:"type"` // photo, video, animated_gif
}

// Post represents a single ingested social media post
type Post struct {
	ExternalID  string     `json:"external_id"`
	Text        string     `json:"text"`
	Author      string     `json:"author"`
	Platform    string     `json:"platform"`
	PostType    string     `json:"post_type"`
	PublishedAt time.Time  `json:"published_at"`
	SourceURL   string     `json:"source_url"`
	Likes       int        `json:"likes"`
	Shares      int        `json:"shares"`
	Replies     int        `json:"replies"`
	Quotes      int        `json:"quotes"`
	LinkURLs    []string   `json:"link_urls"` // expanded links from source metadata
	MediaRefs   []MediaRef `json:"media_refs"`
	RawPayload  string     `json:"raw_payload"` // opaque source blob, kept for audit
	IngestedAt  time.Time  `json:"ingested_at"`
}

// LinkedArticle is the resolved content behind a URL referenced by a post.
// Keyed by (post_id, url); a failed fetch is recorded too so the resolver
// never retries indefinitely.
type LinkedArticle struct {
	PostID     string    `json:"post_id"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	BodyText   string    `json:"body_text"`
	WordCount  int       `json:"word_count"`
	Status     string    `json:"status"`
	FetchError string    `json:"fetch_error,omitempty"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// Verdict is the classification outcome for one post. At most one verdict
// exists per post; re-analysis replaces it wholesale.
type Verdict struct {
	PostID             string    `json:"post_id"`
	Flagged            bool      `json:"flagged"`
	Confidence         string    `json:"confidence"`
	Severity           string    `json:"severity"`
	Concerns           []string  `json:"concerns"`
	Explanation        string    `json:"explanation"`
	Recommendations    []string  `json:"recommendations"`
	TextAnalysis       string    `json:"text_analysis,omitempty"`
	ArticleAnalysis    string    `json:"article_analysis,omitempty"`
	VisualAnalysis     string    `json:"visual_analysis,omitempty"`
	CombinedAnalysis   string    `json:"combined_analysis,omitempty"`
	ArticlesConsidered int       `json:"articles_considered"`
	ImagesConsidered   int       `json:"images_considered"`
	AnalyzedAt         time.Time `json:"analyzed_at"`
	RawModelOutput     string    `json:"raw_model_output,omitempty"`
}

// VerdictWithPost combines a verdict with its post for export
type VerdictWithPost struct {
	Post    Post    `json:"post"`
	Verdict Verdict `json:"verdict"`
}

// Pledge is a donor commitment charged per flagged post
type Pledge struct {
	ID           int64     `json:"id"`
	DonorEmail   string    `json:"donor_email"`
	PerPostCents int64     `json:"per_post_cents"`
	AccruedCents int64     `json:"accrued_cents"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Counts summarizes store contents for the stats command
type Counts struct {
	Posts    int64 `json:"posts"`
	Verdicts int64 `json:"verdicts"`
	Flagged  int64 `json:"flagged"`
	Articles int64 `json:"articles"`
}
