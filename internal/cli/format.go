package cli

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/capitalize-ai/comment-consultant/internal/agent"
	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/internal/taxonomy"
)

// printSnapshot writes a human-readable analysis summary.
func printSnapshot(w io.Writer, tax *taxonomy.Taxonomy, snap *model.Snapshot) {
	a := snap.Analysis
	fmt.Fprintf(w, "Analysis #%d of %s (%s, %s)\n", a.ID, a.VideoID, a.Model, a.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Classified %d of %d comments.\n\n", a.ClassifiedItems, a.TotalItems)

	fmt.Fprintln(w, "Sentiment:")
	for _, s := range snap.Sentiment {
		fmt.Fprintf(w, "  %s %-8s %4d  %5.1f%%\n", taxonomy.SentimentEmoji(s.Sentiment), taxonomy.SentimentName(s.Sentiment), s.Count, s.Share*100)
	}

	if len(snap.Topics) == 0 {
		fmt.Fprintln(w, "\nNo topics found.")
		return
	}
	fmt.Fprintln(w, "\nTopics:")
	for _, t := range snap.Topics {
		name := tax.Name(t.TopicID)
		fmt.Fprintf(w, "  %-28s %4d  %5.1f%%\n", name, t.Count, t.Share*100)
		if verbose {
			fmt.Fprintf(w, "    %s\n", agent.CategoryInsight(t.TopicID, name, t.Share))
		}
		if t.Quote != nil {
			fmt.Fprintf(w, "    \"%s\" (%d likes)\n", truncate(t.Quote.Text, 120), t.Quote.LikeCount)
		}
	}
}

func printComments(w io.Writer, comments []model.CommentView) {
	if len(comments) == 0 {
		fmt.Fprintln(w, "No comments found.")
		return
	}
	for _, c := range comments {
		fmt.Fprintf(w, "- [%d likes] %s\n", c.LikeCount, truncate(c.Text, 200))
		if verbose && len(c.Topics) > 0 {
			fmt.Fprintf(w, "  %s, %s\n", strings.Join(c.Topics, ", "), c.Sentiment)
		}
	}
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}
