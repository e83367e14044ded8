package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/comment-consultant/internal/config"
	"github.com/capitalize-ai/comment-consultant/internal/llm"
	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DatabasePath:    filepath.Join(t.TempDir(), "comments.db"),
		LLMProvider:     "openrouter",
		BatchSize:       20,
		AnalysisLimit:   100,
		MinTextLength:   3,
		AgentTimeout:    time.Second,
		SessionCapacity: 10,
		SessionTTL:      time.Hour,
	}
}

func TestNewWithoutCredentials(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.NATS)
	assert.Nil(t, a.Events)

	ctx := context.Background()
	_, err = a.Analysis.ImportComments(ctx, "dQw4w9WgXcQ", []model.Comment{
		{ID: "c1", Text: "great video", LikeCount: 1},
	})
	require.NoError(t, err)

	_, err = a.Analysis.Analyze(ctx, "dQw4w9WgXcQ", model.AnalyzeRequest{})
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestNewLLMClientRequiresKey(t *testing.T) {
	cfg := testConfig(t)
	_, err := newLLMClient(context.Background(), cfg)
	assert.Error(t, err)

	cfg.OpenRouterAPIKey = "sk-test"
	client, err := newLLMClient(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "openrouter", client.Name())
}
