package classifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ParseStatus tags how a batch response was decoded.
type ParseStatus int

const (
	// ParseFailed means neither the strict nor the fallback decode succeeded.
	ParseFailed ParseStatus = iota
	// ParseOK means the payload matched the expected {"items": [...]} shape.
	ParseOK
	// ParseRecovered means only the fallback decode succeeded.
	ParseRecovered
)

func (s ParseStatus) String() string {
	switch s {
	case ParseOK:
		return "ok"
	case ParseRecovered:
		return "recovered"
	default:
		return "failed"
	}
}

// ItemLabels is one entry of a classification response.
type ItemLabels struct {
	ID        string   `json:"id"`
	Labels    []string `json:"labels"`
	Sentiment string   `json:"sentiment"`
}

// ParseResult is the tagged outcome of decoding one batch response.
type ParseResult struct {
	Status ParseStatus
	Items  []ItemLabels
	Err    error
}

// Parse decodes a batch response. It tries the strict shape first, then
// exactly one fallback decode that accepts a bare list of items or an object
// keyed by item id.
func Parse(payload string) ParseResult {
	body := stripFences(payload)
	if body == "" {
		return ParseResult{Status: ParseFailed, Err: errors.New("empty response")}
	}

	items, strictErr := decodeStrict(body)
	if strictErr == nil {
		return ParseResult{Status: ParseOK, Items: items}
	}

	items, lenientErr := decodeLenient(body)
	if lenientErr == nil {
		return ParseResult{Status: ParseRecovered, Items: items}
	}

	return ParseResult{
		Status: ParseFailed,
		Err:    fmt.Errorf("strict: %v; fallback: %v", strictErr, lenientErr),
	}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func decodeStrict(body string) ([]ItemLabels, error) {
	var envelope struct {
		Items *[]ItemLabels `json:"items"`
	}
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(&envelope); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after object")
	}
	if envelope.Items == nil {
		return nil, errors.New(`missing "items"`)
	}
	return *envelope.Items, nil
}

func decodeLenient(body string) ([]ItemLabels, error) {
	raw := []byte(body)
	switch {
	case bytes.HasPrefix(raw, []byte("[")):
		var items []ItemLabels
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		return items, nil

	case bytes.HasPrefix(raw, []byte("{")):
		var keyed map[string]struct {
			Labels    []string `json:"labels"`
			Sentiment string   `json:"sentiment"`
		}
		if err := json.Unmarshal(raw, &keyed); err != nil {
			return nil, err
		}
		if len(keyed) == 0 {
			return nil, errors.New("empty object")
		}
		items := make([]ItemLabels, 0, len(keyed))
		for id, v := range keyed {
			items = append(items, ItemLabels{ID: id, Labels: v.Labels, Sentiment: v.Sentiment})
		}
		return items, nil
	}
	return nil, errors.New("payload is neither a list nor an object")
}
