package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CLASSIFY_BATCH_SIZE", "")
	t.Setenv("LLM_PROVIDER", "")

	cfg := Load()

	assert.Equal(t, 20, cfg.BatchSize)
	assert.Equal(t, 10, cfg.BatchConcurrency)
	assert.Equal(t, 45*time.Second, cfg.BatchTimeout)
	assert.Equal(t, 500, cfg.MaxTextLength)
	assert.Equal(t, 60*time.Second, cfg.AgentTimeout)
	assert.Equal(t, "openrouter", cfg.LLMProvider)
	assert.Equal(t, OpenRouterBaseURL, cfg.BaseURL())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CLASSIFY_BATCH_SIZE", "5")
	t.Setenv("CLASSIFY_BATCH_TIMEOUT", "3s")
	t.Setenv("AGENT_TEMPERATURE", "0.4")
	t.Setenv("NATS_ENABLED", "true")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("CLASSIFY_CONCURRENCY", "not-a-number")

	cfg := Load()

	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, 3*time.Second, cfg.BatchTimeout)
	assert.InDelta(t, 0.4, cfg.AgentTemperature, 1e-9)
	assert.True(t, cfg.NATSEnabled)
	assert.Equal(t, "sk-test", cfg.APIKey())
	assert.Equal(t, "", cfg.BaseURL())
	assert.Equal(t, 10, cfg.BatchConcurrency, "invalid values fall back to the default")
}

func TestLoadCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	cfg := Load()
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)

	t.Setenv("CORS_ORIGINS", "")
	assert.Empty(t, Load().CORSOrigins)
}
