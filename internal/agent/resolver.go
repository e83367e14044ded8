package agent

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/capitalize-ai/comment-consultant/internal/model"
)

// Filter is what the context resolver extracts from an utterance. Empty
// fields mean no match.
type Filter struct {
	TopicID   string
	Sentiment model.Sentiment
}

// Matched reports whether either a topic or a sentiment was found.
func (f Filter) Matched() bool {
	return f.TopicID != "" || f.Sentiment != ""
}

type topicKeyword struct {
	phrase  string
	topicID string
}

type sentimentKeyword struct {
	phrase    string
	sentiment model.Sentiment
}

// topicKeywords is scanned in order and the first phrase found in the
// lowercased utterance wins. Full category names come first, then word roots.
// Ukrainian roots match anywhere; Latin-script roots only at the start of a
// word, so "hate" does not fire inside "whatever".
var topicKeywords = []topicKeyword{
	{"похвала/подяка", "praise"},
	{"критика/незадоволення", "critique"},
	{"питання/уточнення", "questions"},
	{"поради/пропозиції", "suggestions"},
	{"ведучий/персона", "host_persona"},
	{"точність/правдивість", "content_truth"},
	{"звук/відео/монтаж", "av_quality"},
	{"ціни/цінність", "price_value"},
	{"особисті історії", "personal_story"},
	{"офтоп/жарти/меми", "offtopic_fun"},
	{"токсичність/хейт", "toxicity"},

	{"похвал", "praise"},
	{"подяк", "praise"},
	{"критик", "critique"},
	{"незадовол", "critique"},
	{"питанн", "questions"},
	{"уточнен", "questions"},
	{"поради", "suggestions"},
	{"пропозиц", "suggestions"},
	{"ведуч", "host_persona"},
	{"персон", "host_persona"},
	{"точніст", "content_truth"},
	{"правдив", "content_truth"},
	{"звук", "av_quality"},
	{"монтаж", "av_quality"},
	{"ціна", "price_value"},
	{"ціни", "price_value"},
	{"цінніст", "price_value"},
	{"вартість", "price_value"},
	{"особист", "personal_story"},
	{"історі", "personal_story"},
	{"офтоп", "offtopic_fun"},
	{"жарт", "offtopic_fun"},
	{"мем", "offtopic_fun"},
	{"токсич", "toxicity"},
	{"хейт", "toxicity"},

	{"praise", "praise"},
	{"gratitude", "praise"},
	{"thank", "praise"},
	{"critique", "critique"},
	{"criticism", "critique"},
	{"complain", "critique"},
	{"dissatisf", "critique"},
	{"question", "questions"},
	{"clarif", "questions"},
	{"suggest", "suggestions"},
	{"advice", "suggestions"},
	{"recommend", "suggestions"},
	{"personal stor", "personal_story"},
	{"presenter", "host_persona"},
	{"persona", "host_persona"},
	{"accura", "content_truth"},
	{"truth", "content_truth"},
	{"audio", "av_quality"},
	{"sound", "av_quality"},
	{"editing", "av_quality"},
	{"price", "price_value"},
	{"pricing", "price_value"},
	{"off-topic", "offtopic_fun"},
	{"offtopic", "offtopic_fun"},
	{"joke", "offtopic_fun"},
	{"meme", "offtopic_fun"},
	{"toxic", "toxicity"},
	{"hate", "toxicity"},
}

var sentimentKeywords = []sentimentKeyword{
	{"позитивн", model.SentimentPositive},
	{"схвален", model.SentimentPositive},
	{"добр", model.SentimentPositive},
	{"хорош", model.SentimentPositive},
	{"негативн", model.SentimentNegative},
	{"поган", model.SentimentNegative},
	{"критич", model.SentimentNegative},
	{"незадовол", model.SentimentNegative},
	{"нейтральн", model.SentimentNeutral},
	{"спокійн", model.SentimentNeutral},
	{"фактичн", model.SentimentNeutral},

	{"positive", model.SentimentPositive},
	{"disapprov", model.SentimentNegative},
	{"approv", model.SentimentPositive},
	{"unhappy", model.SentimentNegative},
	{"happy", model.SentimentPositive},
	{"negative", model.SentimentNegative},
	{"critical", model.SentimentNegative},
	{"neutral", model.SentimentNeutral},
	{"factual", model.SentimentNeutral},
}

// Resolve maps an utterance to a topic and a sentiment filter. It is pure:
// the same text always yields the same Filter.
func Resolve(utterance string) Filter {
	text := strings.ToLower(utterance)

	var f Filter
	for _, k := range topicKeywords {
		if containsRoot(text, k.phrase) {
			f.TopicID = k.topicID
			break
		}
	}
	for _, k := range sentimentKeywords {
		if containsRoot(text, k.phrase) {
			f.Sentiment = k.sentiment
			break
		}
	}
	return f
}

// containsRoot reports whether phrase occurs in text. ASCII phrases must
// start a word.
func containsRoot(text, phrase string) bool {
	if !isASCII(phrase) {
		return strings.Contains(text, phrase)
	}
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], phrase)
		if i < 0 {
			return false
		}
		i += from
		prev, _ := utf8.DecodeLastRuneInString(text[:i])
		if i == 0 || !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
			return true
		}
		from = i + 1
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
