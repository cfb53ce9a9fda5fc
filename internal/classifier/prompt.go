package classifier

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pledgewatch/pledgewatch/internal/media"
	"github.com/pledgewatch/pledgewatch/internal/store"
)

// Per-article cap inside the prompt. The stored body is already capped;
// this keeps multi-article posts from crowding out the post itself.
const promptArticleChars = 4000

// BuildParts assembles the multimodal request for one post. The same
// assembly serves every modality combination: the article section and image
// attachments are simply omitted when empty.
func BuildParts(post *store.Post, articles []store.LinkedArticle, images []media.Image) []Part {
	var sb strings.Builder

	sb.WriteString("You are reviewing social media content about a public figure for harmful rhetoric targeting transgender people.\n\n")

	sb.WriteString("## Harm Rubric\n")
	sb.WriteString("Flag content that contains any of the following:\n")
	sb.WriteString("- Identity-denial language (denying that transgender people exist or are who they say they are)\n")
	sb.WriteString("- Deliberate misgendering or deadnaming\n")
	sb.WriteString("- Discriminatory stereotyping\n")
	sb.WriteString("- Incitement to harassment or violence\n")
	sb.WriteString("- Rhetoric aimed at restricting access to healthcare\n")
	sb.WriteString("- Framing transgender people as a threat to others\n\n")

	sb.WriteString("## Post\n")
	sb.WriteString(fmt.Sprintf("Author: %s\n", post.Author))
	sb.WriteString(fmt.Sprintf("Platform: %s\n", post.Platform))
	sb.WriteString(fmt.Sprintf("Type: %s\n", post.PostType))
	sb.WriteString(fmt.Sprintf("Engagement: %d likes, %d shares, %d replies, %d quotes\n", post.Likes, post.Shares, post.Replies, post.Quotes))
	sb.WriteString("Text:\n")
	sb.WriteString(post.Text)
	sb.WriteString("\n\n")

	if len(articles) > 0 {
		sb.WriteString("## Linked Articles\n")
		sb.WriteString("The post links to the following article content. Judge the post in the context of what it is promoting.\n\n")
		for i, a := range articles {
			sb.WriteString(fmt.Sprintf("### Article %d: %s\n", i+1, a.Title))
			sb.WriteString(fmt.Sprintf("URL: %s\n", a.URL))
			sb.WriteString(truncate(a.BodyText, promptArticleChars))
			sb.WriteString("\n\n")
		}
	}

	if len(images) > 0 {
		sb.WriteString(fmt.Sprintf("## Images\n%d image(s) from the post are attached. Include them in your judgment.\n\n", len(images)))
	}

	sb.WriteString("## Task\n\n")
	sb.WriteString("Respond with ONLY a single JSON object, no markdown, no explanation outside it. Required keys:\n")
	sb.WriteString(`{
  "is_flagged": true|false,
  "confidence": "high"|"medium"|"low",
  "severity": "high"|"medium"|"low",
  "concerns": ["..."],
  "explanation": "...",
  "recommendations": ["..."],
  "text_analysis": "analysis of the post text, or null",
  "article_analysis": "analysis of linked articles, or null",
  "visual_analysis": "analysis of attached images, or null",
  "combined_analysis": "how the modalities combine, or null"
}`)
	sb.WriteString("\n")

	parts := []Part{{Text: sb.String()}}
	for _, img := range images {
		parts = append(parts, Part{ImageBytes: img.Bytes, ImageMIME: img.MIMEType})
	}
	return parts
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
