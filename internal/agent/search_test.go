package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/comment-consultant/internal/model"
)

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"price", "course"}, Keywords("What is the price of the course?"))
	assert.Equal(t, []string{"ціна", "курсу", "ціна"}, Keywords("Що кажуть про ціна курсу, ціна?"))
	assert.Empty(t, Keywords("what is it?"))

	many := Keywords("alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima")
	assert.Len(t, many, 10)
	assert.Equal(t, "alpha", many[0])
	assert.Equal(t, "juliet", many[9])
}

func comment(id, text string, likes int) model.Comment {
	return model.Comment{ID: id, Text: text, LikeCount: likes, PublishedAt: t0}
}

func ids(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.CommentID
	}
	return out
}

func TestSearchScoring(t *testing.T) {
	comments := []model.Comment{
		comment("liked", "Great video", 500),
		comment("whole", "the price is too high", 0),
		comment("both", "course pricing unclear", 50),
		comment("none", "nothing here", 0),
		comment("partial", "coursework and price", 0),
	}

	got := Search(comments, "price of the course", 10)

	assert.Equal(t, []string{"both", "partial", "whole", "liked"}, ids(got))
	assert.InDelta(t, 2.5, got[0].Score, 1e-9) // course 1, price inside pricing 1, likes 0.5
	assert.InDelta(t, 2.0, got[1].Score, 1e-9) // course inside coursework 1, trailing price 1
	assert.InDelta(t, 1.5, got[2].Score, 1e-9)
	assert.InDelta(t, 1.0, got[3].Score, 1e-9) // like bonus only, capped at 1
}

func TestSearchWholeWordBonus(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"price", 1.5},
		{"the price is high", 1.5},
		{"price is high", 1.0},
		{"too high a price", 1.0},
		{"the price, again", 1.0},
		{"overpriced", 1.0},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got := Search([]model.Comment{comment("a", tc.text, 0)}, "price", 1)
			require.Len(t, got, 1)
			assert.InDelta(t, tc.want, got[0].Score, 1e-9)
		})
	}
}

func TestSearchRepeatedKeywordCountsTwice(t *testing.T) {
	assert.Equal(t, []string{"price", "price"}, Keywords("price? price!"))

	got := Search([]model.Comment{comment("a", "the price is high", 0)}, "price? price!", 1)
	require.Len(t, got, 1)
	assert.InDelta(t, 3.0, got[0].Score, 1e-9)
}

func TestSearchExcludesZeroScore(t *testing.T) {
	got := Search([]model.Comment{comment("a", "unrelated", 0), comment("b", "also unrelated", 0)}, "price", 5)
	assert.Empty(t, got)
}

func TestSearchTieBreaksOnLikes(t *testing.T) {
	comments := []model.Comment{
		comment("fewer", "price", 150),
		comment("more", "price", 300),
		comment("exact-low", "price", 0),
	}

	got := Search(comments, "price", 5)

	// Both liked comments score 2.5 (bonus capped); likes decide.
	assert.Equal(t, []string{"more", "fewer", "exact-low"}, ids(got))
}

func TestSearchTruncatesAndIsDeterministic(t *testing.T) {
	var comments []model.Comment
	for i := 0; i < 30; i++ {
		comments = append(comments, comment(strings.Repeat("x", i+1), "the price again", i%4))
	}

	first := Search(comments, "price", 5)
	require.Len(t, first, 5)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, Search(comments, "price", 5))
	}
	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Score, first[i].Score)
	}
}

func TestSearchWithoutKeywords(t *testing.T) {
	got := Search([]model.Comment{comment("a", "what", 1000)}, "what is it", 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
