package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/capitalize-ai/comment-consultant/internal/model"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		want      Filter
	}{
		{"positive only", "show me the positive comments", Filter{Sentiment: model.SentimentPositive}},
		{"topic only", "What do people say about the sound?", Filter{TopicID: "av_quality"}},
		{"topic and sentiment", "negative comments about the price", Filter{TopicID: "price_value", Sentiment: model.SentimentNegative}},
		{"ukrainian topic", "Покажи похвалу від глядачів", Filter{TopicID: "praise"}},
		{"ukrainian sentiment", "Які негативні коментарі?", Filter{Sentiment: model.SentimentNegative}},
		{"ukrainian category name", "Покажи Звук/відео/монтаж", Filter{TopicID: "av_quality"}},
		{"case insensitive", "TOXIC stuff", Filter{TopicID: "toxicity"}},
		{"unhappy is negative", "are viewers unhappy", Filter{Sentiment: model.SentimentNegative}},
		{"personal stories", "show me the personal stories", Filter{TopicID: "personal_story"}},
		{"root inside another word", "what do people say whatever the topic", Filter{}},
		{"disapproval is negative", "do viewers disapprove of the ending", Filter{Sentiment: model.SentimentNegative}},
		{"latin root at word start", "any hateful replies?", Filter{TopicID: "toxicity"}},
		{"current video is not a topic", "що кажуть про поточне відео", Filter{}},
		{"no match", "what do viewers want next", Filter{}},
		{"empty", "", Filter{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.utterance))
		})
	}
}

func TestResolveFirstTableEntryWins(t *testing.T) {
	// "подяк" (praise) precedes "критик" (critique) in the table, regardless
	// of where the words appear in the utterance.
	assert.Equal(t, "praise", Resolve("критика і подяка").TopicID)
	assert.Equal(t, "praise", Resolve("подяка і критика").TopicID)

	// "thank" precedes "sound".
	assert.Equal(t, "praise", Resolve("the sound was bad, thanks anyway").TopicID)
}

func TestResolveIsPure(t *testing.T) {
	for _, u := range []string{"show me the positive comments", "критика", "nothing here"} {
		first := Resolve(u)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, Resolve(u))
		}
	}
}

func TestContainsRoot(t *testing.T) {
	assert.True(t, containsRoot("hate it", "hate"))
	assert.True(t, containsRoot("so much (hate)", "hate"))
	assert.True(t, containsRoot("whatever, i hate it", "hate"))
	assert.False(t, containsRoot("whatever", "hate"))
	assert.False(t, containsRoot("", "hate"))
	// Cyrillic roots keep plain substring matching.
	assert.True(t, containsRoot("непохвальне", "похвал"))
}

func TestFilterMatched(t *testing.T) {
	assert.False(t, Filter{}.Matched())
	assert.True(t, Filter{TopicID: "praise"}.Matched())
	assert.True(t, Filter{Sentiment: model.SentimentNeutral}.Matched())
}
