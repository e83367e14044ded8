package agent

import "fmt"

var insightTemplates = map[string]string{
	"praise":         "%.0f%% of the audience responds positively. The content meets viewers' expectations.",
	"critique":       "%.0f%% of comments contain criticism. These point at weak spots worth improving in future videos.",
	"questions":      "%.0f%% of viewers have questions. A FAQ or a follow-up explainer would answer them.",
	"suggestions":    "%.0f%% of comments carry suggestions. This is direct feedback for improving the content.",
	"host_persona":   "%.0f%% of comments are about the host. This shows how personal the connection with the audience is.",
	"content_truth":  "%.0f%% of comments discuss accuracy. Getting facts right matters for the channel's credibility.",
	"av_quality":     "%.0f%% of comments are about technical quality: sound, picture and editing.",
	"price_value":    "%.0f%% of comments are about price or value. Relevant for monetisation and positioning.",
	"personal_story": "%.0f%% of viewers share personal stories. The content resonates with their own experience.",
	"offtopic_fun":   "%.0f%% of comments are off-topic or jokes. A high share can mean the video lost focus.",
	"toxicity":       "%.0f%% of comments are toxic. Moderation or a change in presentation may be needed.",
}

// CategoryInsight returns a short author-facing interpretation of a topic's share.
func CategoryInsight(topicID, topicName string, share float64) string {
	percent := share * 100
	if tmpl, ok := insightTemplates[topicID]; ok {
		return fmt.Sprintf(tmpl, percent)
	}
	return fmt.Sprintf("%.0f%% of comments fall into %q.", percent, topicName)
}
