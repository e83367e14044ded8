package agent

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/capitalize-ai/comment-consultant/internal/model"
)

const (
	maxKeywords    = 10
	minKeywordLen  = 3
	likeBonusScale = 100.0
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

var stopWords = map[string]struct{}{
	// Ukrainian
	"що": {}, "як": {}, "де": {}, "коли": {}, "чому": {}, "чи": {}, "і": {}, "в": {}, "на": {},
	"з": {}, "для": {}, "про": {}, "або": {}, "та": {}, "але": {}, "які": {}, "який": {}, "яка": {},
	"цей": {}, "це": {}, "щодо": {}, "люди": {}, "глядачі": {}, "думають": {}, "кажуть": {},
	"коментарі": {}, "коментарів": {}, "відео": {},
	// English
	"the": {}, "and": {}, "for": {}, "are": {}, "what": {}, "how": {}, "why": {}, "when": {},
	"where": {}, "who": {}, "which": {}, "about": {}, "with": {}, "this": {}, "that": {},
	"does": {}, "did": {}, "was": {}, "were": {}, "you": {}, "they": {}, "their": {}, "there": {},
	"from": {}, "have": {}, "has": {}, "into": {}, "than": {}, "then": {}, "them": {},
	"these": {}, "those": {}, "not": {}, "but": {}, "can": {}, "any": {}, "all": {},
	"people": {}, "think": {}, "say": {}, "says": {}, "viewers": {},
	"comment": {}, "comments": {}, "video": {},
}

// Match is one ranked search hit.
type Match struct {
	CommentID string  `json:"comment_id"`
	Text      string  `json:"text"`
	Author    string  `json:"author"`
	LikeCount int     `json:"likes"`
	Score     float64 `json:"relevance_score"`
}

// Keywords extracts at most ten search keywords from a question, in order of
// appearance. Stop words and words shorter than three characters are
// dropped. Repeated words are kept and count once per occurrence when
// scoring.
func Keywords(question string) []string {
	var keywords []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(question), -1) {
		if utf8.RuneCountInString(w) < minKeywordLen {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// Search ranks comments against a question. Each keyword found in a
// comment adds 1, plus 0.5 when it is the whole text or sits between two
// spaces (a keyword opening or closing the text gets no bonus); engagement adds
// up to 1 (one point per hundred likes). Comments scoring zero are dropped.
// Results are ordered by score, then likes, both descending; remaining ties
// keep the order of the input, so callers should pass comments in a stable
// order.
func Search(comments []model.Comment, question string, limit int) []Match {
	keywords := Keywords(question)
	if len(keywords) == 0 {
		return []Match{}
	}

	matches := make([]Match, 0)
	for _, c := range comments {
		score := relevance(strings.ToLower(c.Text), keywords) + likeBonus(c.LikeCount)
		if score <= 0 {
			continue
		}
		matches = append(matches, Match{
			CommentID: c.ID,
			Text:      c.Text,
			Author:    c.Author,
			LikeCount: c.LikeCount,
			Score:     score,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].LikeCount > matches[j].LikeCount
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func relevance(text string, keywords []string) float64 {
	var score float64
	for _, kw := range keywords {
		if !strings.Contains(text, kw) {
			continue
		}
		score++
		if text == kw || strings.Contains(text, " "+kw+" ") {
			score += 0.5
		}
	}
	return score
}

func likeBonus(likes int) float64 {
	if likes <= 0 {
		return 0
	}
	bonus := float64(likes) / likeBonusScale
	if bonus > 1 {
		return 1
	}
	return bonus
}
