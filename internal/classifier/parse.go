package classifier

import (
	"encoding/json"
	"strings"

	"github.com/pledgewatch/pledgewatch/internal/store"
)

// modelVerdict is the JSON shape the prompt asks for. Fields the model
// omits or mangles are normalized below rather than trusted.
type modelVerdict struct {
	IsFlagged        bool     `json:"is_flagged"`
	Confidence       string   `json:"confidence"`
	Severity         string   `json:"severity"`
	Concerns         []string `json:"concerns"`
	Explanation      string   `json:"explanation"`
	Recommendations  []string `json:"recommendations"`
	TextAnalysis     string   `json:"text_analysis"`
	ArticleAnalysis  string   `json:"article_analysis"`
	VisualAnalysis   string   `json:"visual_analysis"`
	CombinedAnalysis string   `json:"combined_analysis"`
}

// parseModelOutput coerces a raw model response into a verdict. The
// response is not guaranteed to be valid JSON: it may arrive wrapped in
// prose or markdown fences. Each balanced {...} span is tried in turn; if
// none parses the deterministic fallback verdict is returned. This function
// never fails.
func parseModelOutput(raw string) store.Verdict {
	for _, span := range jsonObjectSpans(raw) {
		var mv modelVerdict
		if err := json.Unmarshal([]byte(span), &mv); err != nil {
			continue
		}
		return store.Verdict{
			Flagged:          mv.IsFlagged,
			Confidence:       coerceConfidence(mv.Confidence),
			Severity:         coerceSeverity(mv.Severity),
			Concerns:         mv.Concerns,
			Explanation:      mv.Explanation,
			Recommendations:  mv.Recommendations,
			TextAnalysis:     mv.TextAnalysis,
			ArticleAnalysis:  mv.ArticleAnalysis,
			VisualAnalysis:   mv.VisualAnalysis,
			CombinedAnalysis: mv.CombinedAnalysis,
		}
	}
	return fallbackVerdict()
}

// fallbackVerdict is stored when the model output cannot be parsed, so the
// post still counts as analyzed instead of being retried every run. It is
// conservative: never flagged, lowest confidence.
func fallbackVerdict() store.Verdict {
	return store.Verdict{
		Flagged:         false,
		Confidence:      store.ConfidenceLow,
		Severity:        store.SeverityUnknown,
		Concerns:        []string{"unable to parse analysis"},
		Explanation:     "parse error",
		Recommendations: []string{"manual review"},
	}
}

// jsonObjectSpans returns every balanced top-level {...} span in s, in
// order, tracking string literals and escapes so braces inside values do
// not confuse the balance count.
func jsonObjectSpans(s string) []string {
	var spans []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					spans = append(spans, s[start:i+1])
				}
			}
		}
	}
	return spans
}

func coerceConfidence(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case store.ConfidenceHigh:
		return store.ConfidenceHigh
	case store.ConfidenceMedium:
		return store.ConfidenceMedium
	case store.ConfidenceLow:
		return store.ConfidenceLow
	default:
		return store.ConfidenceLow
	}
}

func coerceSeverity(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case store.SeverityHigh:
		return store.SeverityHigh
	case store.SeverityMedium:
		return store.SeverityMedium
	case store.SeverityLow:
		return store.SeverityLow
	default:
		return store.SeverityUnknown
	}
}
