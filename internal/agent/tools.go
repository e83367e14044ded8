package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/capitalize-ai/comment-consultant/internal/llm"
)

// Operation names offered to the reasoning service.
const (
	ToolAnalyzeVideo         = "analyze_video"
	ToolGetAnalysisData      = "get_analysis_data"
	ToolGetTopicDetails      = "get_topic_details"
	ToolAnalyzeCategories    = "analyze_categories"
	ToolGetFilteredComments  = "get_filtered_comments"
	ToolGetSentimentAnalysis = "get_sentiment_analysis"
	ToolSearchComments       = "search_comments"
)

var (
	// ErrNoVideo is returned when an operation needs a video and neither the
	// arguments nor the conversation provide one.
	ErrNoVideo = errors.New("no video in context")
	// ErrMissingArgument is returned when a required argument is absent.
	ErrMissingArgument = errors.New("missing required argument")
	// ErrInvalidArgument is returned when an argument does not decode or is out of range.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnknownTool is returned for operations outside the menu.
	ErrUnknownTool = errors.New("unknown operation")
)

// AnalyzeVideoArgs are the arguments of analyze_video.
type AnalyzeVideoArgs struct {
	URLOrID string `json:"url_or_id" jsonschema:"required" jsonschema_description:"YouTube URL or 11-character video id"`
	Limit   int    `json:"limit,omitempty" jsonschema:"default=1200" jsonschema_description:"Maximum number of comments to classify"`
	Force   bool   `json:"force,omitempty" jsonschema_description:"Re-run the classification even when an analysis already exists"`
}

// VideoArgs are the arguments of operations that only need a video.
type VideoArgs struct {
	VideoID string `json:"video_id,omitempty" jsonschema_description:"YouTube video id or URL; defaults to the current video"`
}

// TopicDetailsArgs are the arguments of get_topic_details.
type TopicDetailsArgs struct {
	VideoID string `json:"video_id,omitempty" jsonschema_description:"YouTube video id or URL; defaults to the current video"`
	TopicID string `json:"topic_id" jsonschema:"required" jsonschema_description:"Topic id from the taxonomy"`
	Limit   int    `json:"limit,omitempty" jsonschema:"default=3" jsonschema_description:"Number of quotes"`
}

// FilteredCommentsArgs are the arguments of get_filtered_comments.
type FilteredCommentsArgs struct {
	VideoID   string `json:"video_id,omitempty" jsonschema_description:"YouTube video id or URL; defaults to the current video"`
	TopicID   string `json:"topic_id,omitempty" jsonschema_description:"Topic id filter"`
	Sentiment string `json:"sentiment,omitempty" jsonschema:"enum=positive,enum=neutral,enum=negative" jsonschema_description:"Sentiment filter"`
	Limit     int    `json:"limit,omitempty" jsonschema:"default=10" jsonschema_description:"Number of comments"`
}

// SearchArgs are the arguments of search_comments.
type SearchArgs struct {
	VideoID    string `json:"video_id,omitempty" jsonschema_description:"YouTube video id or URL; defaults to the current video"`
	Question   string `json:"question" jsonschema:"required" jsonschema_description:"The user's question"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"default=5" jsonschema_description:"Maximum number of results"`
}

// Tool is one entry of the operation menu.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Required    []string
}

var menu = []Tool{
	newTool[AnalyzeVideoArgs](ToolAnalyzeVideo,
		"Classify the comments of a YouTube video by topic and sentiment and store the analysis. Returns the stored analysis when one exists unless force is set."),
	newTool[VideoArgs](ToolGetAnalysisData,
		"Get the latest stored analysis of a video: top topics with shares and quotes, and the sentiment breakdown."),
	newTool[TopicDetailsArgs](ToolGetTopicDetails,
		"Get one topic of the latest analysis with its most liked quotes."),
	newTool[VideoArgs](ToolAnalyzeCategories,
		"Describe every topic of the latest analysis with an insight for the author."),
	newTool[FilteredCommentsArgs](ToolGetFilteredComments,
		"Get analysed comments filtered by topic and/or sentiment, most liked first."),
	newTool[VideoArgs](ToolGetSentimentAnalysis,
		"Get the sentiment breakdown of the latest analysis with example comments."),
	newTool[SearchArgs](ToolSearchComments,
		"Find comments relevant to a free-text question about the video."),
}

// Menu returns the fixed operation menu in declaration order.
func Menu() []Tool {
	out := make([]Tool, len(menu))
	copy(out, menu)
	return out
}

// LookupTool returns the menu entry with the given name.
func LookupTool(name string) (Tool, bool) {
	for _, t := range menu {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// Definitions converts the menu for providers with native tool calling.
func Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(menu))
	for _, t := range menu {
		defs = append(defs, llm.ToolDefinition{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
	}
	return defs
}

// DescribeMenu renders the menu as text for prompt-based planning.
func DescribeMenu() string {
	var b strings.Builder
	for _, t := range menu {
		params, _ := json.Marshal(t.Parameters)
		fmt.Fprintf(&b, "- %s: %s\n  parameters: %s\n", t.Name, t.Description, params)
	}
	return b.String()
}

func newTool[T any](name, description string) Tool {
	params := GenerateSchema[T]()
	var required []string
	if list, ok := params["required"].([]any); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				required = append(required, s)
			}
		}
	}
	return Tool{Name: name, Description: description, Parameters: params, Required: required}
}

// GenerateSchema reflects the JSON schema of an argument struct.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	m, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// decodeArgs validates raw arguments against the tool's required list and
// decodes them into dst. Required string arguments must be non-blank.
func decodeArgs(tool Tool, raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("%w: arguments of %s are not an object", ErrInvalidArgument, tool.Name)
	}
	for _, name := range tool.Required {
		v, ok := fields[name]
		if !ok || isBlank(v) {
			return fmt.Errorf("%w: %s requires %q", ErrMissingArgument, tool.Name, name)
		}
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidArgument, tool.Name, err)
	}
	return nil
}

func isBlank(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return true
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s) == ""
	}
	return false
}
