package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/comment-consultant/internal/classifier"
	"github.com/capitalize-ai/comment-consultant/internal/llm"
	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/internal/store"
	"github.com/capitalize-ai/comment-consultant/internal/taxonomy"
	"github.com/capitalize-ai/comment-consultant/pkg/logger"
)

const testVideo = "dQw4w9WgXcQ"

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// batchLLM answers classification batches with respond(ctx, ids).
type batchLLM struct {
	respond func(ctx context.Context, ids []string) (string, error)

	mu    sync.Mutex
	calls int
}

func (c *batchLLM) Name() string     { return "batch" }
func (c *batchLLM) Models() []string { return nil }

func (c *batchLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	prompt := req.Messages[len(req.Messages)-1].Content
	_, listing, _ := strings.Cut(prompt, "Comments (id<TAB>text):\n")
	var ids []string
	for _, line := range strings.Split(strings.TrimRight(listing, "\n"), "\n") {
		if id, _, ok := strings.Cut(line, "\t"); ok {
			ids = append(ids, id)
		}
	}

	content, err := c.respond(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{Content: content}, nil
}

func (c *batchLLM) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// labelled answers every id with the given labels.
func labelled(labels map[string]classifier.ItemLabels) func(context.Context, []string) (string, error) {
	return func(_ context.Context, ids []string) (string, error) {
		items := make([]classifier.ItemLabels, 0, len(ids))
		for _, id := range ids {
			if l, ok := labels[id]; ok {
				l.ID = id
				items = append(items, l)
			}
		}
		b, err := json.Marshal(map[string]any{"items": items})
		return string(b), err
	}
}

// scriptedLLM returns canned replies in order, for the agent's planner.
type scriptedLLM struct {
	mu       sync.Mutex
	replies  []string
	requests []*llm.CompletionRequest
}

func (c *scriptedLLM) Name() string     { return "scripted" }
func (c *scriptedLLM) Models() []string { return nil }

func (c *scriptedLLM) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if len(c.requests) > len(c.replies) {
		return nil, fmt.Errorf("unexpected request %d", len(c.requests))
	}
	return &llm.CompletionResponse{Content: c.replies[len(c.requests)-1]}, nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu       sync.Mutex
	analyses []model.AnalysisEvent
	turns    []model.TurnEvent
	err      error
}

func (p *recordingPublisher) PublishAnalysisEvent(_ context.Context, e *model.AnalysisEvent) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.analyses = append(p.analyses, *e)
	return uint64(len(p.analyses)), p.err
}

func (p *recordingPublisher) PublishTurnEvent(_ context.Context, e *model.TurnEvent) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.turns = append(p.turns, *e)
	return uint64(len(p.turns)), p.err
}

func openTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "comments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type analysisFixture struct {
	store     *store.SQLiteStore
	llm       *batchLLM
	events    *recordingPublisher
	service   *AnalysisService
	taxonomy  *taxonomy.Taxonomy
	classOpts classifier.Options
}

func newAnalysisFixture(t *testing.T, respond func(context.Context, []string) (string, error), opts classifier.Options) *analysisFixture {
	t.Helper()
	tax := taxonomy.Default()
	f := &analysisFixture{
		store:     openTestStore(t),
		llm:       &batchLLM{respond: respond},
		events:    &recordingPublisher{},
		taxonomy:  tax,
		classOpts: opts,
	}
	c := classifier.New(f.llm, tax, opts, logger.NewNop())
	f.service = NewAnalysisService(f.store, c, tax, f.events, AnalysisOptions{MinTextLength: 5}, logger.NewNop())
	return f
}

func (f *analysisFixture) seed(t *testing.T, comments ...model.Comment) {
	t.Helper()
	_, err := f.service.ImportComments(context.Background(), testVideo, comments)
	require.NoError(t, err)
}

func comment(id, text string, likes int, minute int) model.Comment {
	return model.Comment{
		ID:          id,
		Author:      "author-" + id,
		Text:        text,
		LikeCount:   likes,
		PublishedAt: t0.Add(time.Duration(minute) * time.Minute),
	}
}
