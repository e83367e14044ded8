package classifier

import (
	"strings"

	"github.com/capitalize-ai/comment-consultant/internal/taxonomy"
)

const systemInstruction = `You classify YouTube comments into topics and a sentiment.
Respond with JSON only, exactly in this shape:
{"items":[{"id":"<comment_id>","labels":["<topic_id>"],"sentiment":"positive|neutral|negative"}]}
Rules:
- Include every comment id from the input exactly once.
- "labels" holds 0, 1 or 2 topic ids from the list. Use [] when nothing fits.
- Use only topic ids from the list, never names.
- "sentiment" is one of positive, neutral, negative.`

// buildPrompt renders the user message for one batch: the taxonomy followed
// by one "id<TAB>text" line per item.
func buildPrompt(tax *taxonomy.Taxonomy, items []Item) string {
	var sb strings.Builder

	sb.WriteString("Topics:\n")
	sb.WriteString(tax.Describe())
	sb.WriteString("\nComments (id<TAB>text):\n")
	for _, item := range items {
		sb.WriteString(item.ID)
		sb.WriteString("\t")
		sb.WriteString(item.Text)
		sb.WriteString("\n")
	}

	return sb.String()
}

// cleanText collapses line and tab characters so each item stays on its own
// line, then truncates to max runes.
func cleanText(text string, max int) string {
	text = strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r', '\v', '\f':
			return ' '
		}
		return r
	}, text)
	text = strings.TrimSpace(text)

	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
