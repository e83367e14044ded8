package service

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/capitalize-ai/comment-consultant/internal/model"
)

// DecodeComments reads fetched comments either as one JSON array or as
// JSON lines, one comment object per line. Blank lines are skipped.
func DecodeComments(r io.Reader) ([]model.Comment, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, fmt.Errorf("%w: no comments", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read comments: %w", err)
	}

	if first == '[' {
		var comments []model.Comment
		if err := json.NewDecoder(br).Decode(&comments); err != nil {
			return nil, fmt.Errorf("%w: decode comment array: %v", ErrInvalidInput, err)
		}
		return comments, nil
	}

	var comments []model.Comment
	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var c model.Comment
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidInput, line, err)
		}
		comments = append(comments, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read comments: %w", err)
	}
	return comments, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b, br.UnreadByte()
	}
}
