package articles

// Article container selectors, tried in priority order. News sites vary
// wildly; update this list when extraction quality drops on a major outlet.
var contentSelectors = []string{
	"article",
	`[role="main"] article`,
	`div[itemprop="articleBody"]`,
	"div.article-body",
	"div.article-content",
	"div.story-body",
	"div.post-content",
	"div.entry-content",
	"main",
	`[role="main"]`,
}

// Elements stripped before text extraction
var strippedSelectors = []string{
	"script",
	"style",
	"noscript",
	"nav",
	"header",
	"footer",
	"aside",
	"form",
	"iframe",
	"figure figcaption",
	".ad", ".ads", ".advertisement",
	".newsletter-signup",
	".related-articles",
	".comments",
}

// minContentChars is the threshold below which a selector match is treated
// as a miss and the next candidate tried.
const minContentChars = 200
