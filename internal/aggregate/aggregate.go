// Package aggregate derives topic and sentiment summaries from per-item labels.
package aggregate

import (
	"sort"
	"time"

	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/internal/taxonomy"
)

// MaxQuoteLength is the rune limit of a representative quote.
const MaxQuoteLength = 200

// Entry is one item of a run together with the comment data needed for quotes.
// Entries with Classified == false contribute nothing.
type Entry struct {
	CommentID   string
	Text        string
	LikeCount   int
	PublishedAt time.Time
	Topics      []string
	Sentiment   model.Sentiment
	Classified  bool
}

// Summarize computes the topic and sentiment summaries of one run.
//
// Topic shares and sentiment shares use the same denominator: the number of
// classified entries. A two-topic entry counts once under each topic, and
// ids outside the taxonomy are ignored. Topics are ordered by count desc,
// then by taxonomy order; topics with zero count are omitted. The sentiment
// summary always has one row per sentiment.
func Summarize(tax *taxonomy.Taxonomy, entries []Entry) model.Summary {
	type topicAcc struct {
		count int
		best  *Entry
	}

	classified := 0
	topics := make(map[string]*topicAcc)
	sentiments := make(map[model.Sentiment]int, len(model.Sentiments))

	for i := range entries {
		e := &entries[i]
		if !e.Classified {
			continue
		}
		classified++
		sentiments[model.NormalizeSentiment(string(e.Sentiment))]++

		for _, id := range tax.Filter(e.Topics, model.MaxTopicsPerItem) {
			acc, ok := topics[id]
			if !ok {
				acc = &topicAcc{}
				topics[id] = acc
			}
			acc.count++
			if acc.best == nil || betterQuote(e, acc.best) {
				acc.best = e
			}
		}
	}

	summary := model.Summary{
		Classified: classified,
		Topics:     make([]model.TopicSummary, 0, len(topics)),
		Sentiment:  make([]model.SentimentSummary, 0, len(model.Sentiments)),
	}

	for id, acc := range topics {
		summary.Topics = append(summary.Topics, model.TopicSummary{
			TopicID: id,
			Count:   acc.count,
			Share:   share(acc.count, classified),
			Quote:   quoteOf(acc.best),
		})
	}
	sort.Slice(summary.Topics, func(i, j int) bool {
		a, b := summary.Topics[i], summary.Topics[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return tax.Position(a.TopicID) < tax.Position(b.TopicID)
	})

	for _, s := range model.Sentiments {
		summary.Sentiment = append(summary.Sentiment, model.SentimentSummary{
			Sentiment: s,
			Count:     sentiments[s],
			Share:     share(sentiments[s], classified),
		})
	}

	return summary
}

// betterQuote reports whether a beats b: more likes first, then the earlier
// publication, then the smaller comment id.
func betterQuote(a, b *Entry) bool {
	if a.LikeCount != b.LikeCount {
		return a.LikeCount > b.LikeCount
	}
	if !a.PublishedAt.Equal(b.PublishedAt) {
		return a.PublishedAt.Before(b.PublishedAt)
	}
	return a.CommentID < b.CommentID
}

func quoteOf(e *Entry) *model.Quote {
	if e == nil {
		return nil
	}
	text := []rune(e.Text)
	if len(text) > MaxQuoteLength {
		text = text[:MaxQuoteLength]
	}
	return &model.Quote{
		CommentID:   e.CommentID,
		Text:        string(text),
		LikeCount:   e.LikeCount,
		PublishedAt: e.PublishedAt,
	}
}

func share(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}
