// Package taxonomy holds the fixed set of comment topics and sentiment display data.
package taxonomy

import (
	"fmt"
	"strings"

	"github.com/capitalize-ai/comment-consultant/internal/model"
)

// Version identifies the topic set. Bump it whenever Default changes.
const Version = "2024.1"

// Topic is one classification category.
type Topic struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Taxonomy is an ordered, immutable set of topics.
type Taxonomy struct {
	topics []Topic
	index  map[string]int
}

// New builds a taxonomy. Topic ids must be unique and non-empty.
func New(topics []Topic) (*Taxonomy, error) {
	t := &Taxonomy{
		topics: make([]Topic, len(topics)),
		index:  make(map[string]int, len(topics)),
	}
	for i, topic := range topics {
		if topic.ID == "" {
			return nil, fmt.Errorf("topic %d: empty id", i)
		}
		if _, dup := t.index[topic.ID]; dup {
			return nil, fmt.Errorf("topic %q: duplicate id", topic.ID)
		}
		t.topics[i] = topic
		t.index[topic.ID] = i
	}
	return t, nil
}

// Topics returns a copy of the topics in declaration order.
func (t *Taxonomy) Topics() []Topic {
	out := make([]Topic, len(t.topics))
	copy(out, t.topics)
	return out
}

// IDs returns topic ids in declaration order.
func (t *Taxonomy) IDs() []string {
	ids := make([]string, len(t.topics))
	for i, topic := range t.topics {
		ids[i] = topic.ID
	}
	return ids
}

// Len returns the number of topics.
func (t *Taxonomy) Len() int { return len(t.topics) }

// Contains reports whether id is a known topic.
func (t *Taxonomy) Contains(id string) bool {
	_, ok := t.index[id]
	return ok
}

// Lookup returns the topic with the given id.
func (t *Taxonomy) Lookup(id string) (Topic, bool) {
	i, ok := t.index[id]
	if !ok {
		return Topic{}, false
	}
	return t.topics[i], true
}

// Name returns the display name of id, or id itself when unknown.
func (t *Taxonomy) Name(id string) string {
	if topic, ok := t.Lookup(id); ok {
		return topic.Name
	}
	return id
}

// Position returns the declaration index of id, or Len() when unknown.
func (t *Taxonomy) Position(id string) int {
	if i, ok := t.index[id]; ok {
		return i
	}
	return len(t.topics)
}

// Filter keeps known ids, drops duplicates and caps the result at max entries.
func (t *Taxonomy) Filter(ids []string, max int) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if !t.Contains(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
		if len(out) == max {
			break
		}
	}
	return out
}

// Describe renders the taxonomy as "- id: name (description)" lines for prompts.
func (t *Taxonomy) Describe() string {
	var b strings.Builder
	for _, topic := range t.topics {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", topic.ID, topic.Name, topic.Description)
	}
	return b.String()
}

var defaultTaxonomy = mustNew([]Topic{
	{ID: "praise", Name: "Praise / gratitude", Description: "compliments, thanks, appreciation of the video or the author"},
	{ID: "critique", Name: "Critique / dissatisfaction", Description: "complaints, disagreement, pointing out what was bad"},
	{ID: "questions", Name: "Questions / clarifications", Description: "asking for details, explanations or follow-ups"},
	{ID: "suggestions", Name: "Advice / suggestions", Description: "ideas for future videos, recommendations, requests"},
	{ID: "host_persona", Name: "Host / persona", Description: "comments about the presenter's personality, looks or manner"},
	{ID: "content_truth", Name: "Accuracy / truthfulness", Description: "fact checks, corrections, doubts about correctness"},
	{ID: "av_quality", Name: "Sound / video / editing", Description: "audio, picture, editing and production quality"},
	{ID: "price_value", Name: "Price / value", Description: "cost, pricing, whether something is worth it"},
	{ID: "personal_story", Name: "Personal stories", Description: "viewers sharing their own experience"},
	{ID: "offtopic_fun", Name: "Off-topic / jokes / memes", Description: "humor, memes, unrelated chatter"},
	{ID: "toxicity", Name: "Toxicity / hate", Description: "insults, harassment, hateful language"},
})

// Default returns the built-in taxonomy.
func Default() *Taxonomy {
	return defaultTaxonomy
}

func mustNew(topics []Topic) *Taxonomy {
	t, err := New(topics)
	if err != nil {
		panic(err)
	}
	return t
}

// SentimentName returns the display name of a sentiment.
func SentimentName(s model.Sentiment) string {
	switch s {
	case model.SentimentPositive:
		return "Positive"
	case model.SentimentNegative:
		return "Negative"
	default:
		return "Neutral"
	}
}

// SentimentEmoji returns the emoji used when presenting a sentiment.
func SentimentEmoji(s model.Sentiment) string {
	switch s {
	case model.SentimentPositive:
		return "😊"
	case model.SentimentNegative:
		return "😟"
	default:
		return "😐"
	}
}
