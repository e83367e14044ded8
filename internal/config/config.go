// Package config provides environment configuration for the API server and CLI.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// NATS settings
	NATSEnabled  bool
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings
	JWTSecret string

	// Storage
	DatabasePath string

	// LLM settings
	LLMProvider      string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenRouterAPIKey string
	AnthropicAPIKey  string
	GeminiAPIKey     string
	ClassifierModel  string
	AgentModel       string

	// Classification
	BatchSize             int
	BatchConcurrency      int
	BatchTimeout          time.Duration
	MaxTextLength         int
	ClassifierTemperature float64
	AnalysisLimit         int
	MinTextLength         int

	// Agent
	AgentTimeout     time.Duration
	AgentMaxTokens   int
	AgentTemperature float64
	SessionCapacity  int
	SessionTTL       time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration
	ChatRateLimit     int
	CORSOrigins       []string

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// OpenRouterBaseURL is the OpenAI-compatible endpoint used when the provider is openrouter.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real environment wins.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Minute),

		// NATS
		NATSEnabled:  getBoolEnv("NATS_ENABLED", false),
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// Storage
		DatabasePath: getEnv("DATABASE_PATH", "./comments.db"),

		// LLM
		LLMProvider:      getEnv("LLM_PROVIDER", "openrouter"),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		ClassifierModel:  getEnv("MODEL_SUMMARY", "openai/gpt-4o-mini"),
		AgentModel:       getEnv("MODEL_AGENT", "openai/gpt-4o-mini"),

		// Classification
		BatchSize:             getIntEnv("CLASSIFY_BATCH_SIZE", 20),
		BatchConcurrency:      getIntEnv("CLASSIFY_CONCURRENCY", 10),
		BatchTimeout:          getDurationEnv("CLASSIFY_BATCH_TIMEOUT", 45*time.Second),
		MaxTextLength:         getIntEnv("CLASSIFY_MAX_TEXT_LENGTH", 500),
		ClassifierTemperature: getFloatEnv("CLASSIFY_TEMPERATURE", 0.0),
		AnalysisLimit:         getIntEnv("ANALYSIS_LIMIT", 1200),
		MinTextLength:         getIntEnv("ANALYSIS_MIN_CHARS", 12),

		// Agent
		AgentTimeout:     getDurationEnv("AGENT_TIMEOUT", 60*time.Second),
		AgentMaxTokens:   getIntEnv("AGENT_MAX_TOKENS", 2000),
		AgentTemperature: getFloatEnv("AGENT_TEMPERATURE", 0.1),
		SessionCapacity:  getIntEnv("SESSION_CAPACITY", 10000),
		SessionTTL:       getDurationEnv("SESSION_TTL", 24*time.Hour),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		ChatRateLimit:     getIntEnv("CHAT_RATE_LIMIT", 20),
		CORSOrigins:       getListEnv("CORS_ORIGINS"),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// APIKey returns the credential for the configured provider.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	case "gemini":
		return c.GeminiAPIKey
	default:
		return c.OpenRouterAPIKey
	}
}

// BaseURL returns the OpenAI-compatible endpoint for the configured provider,
// or "" for the provider default.
func (c *Config) BaseURL() string {
	if c.LLMProvider == "openrouter" {
		return OpenRouterBaseURL
	}
	if c.LLMProvider == "openai" {
		return c.OpenAIBaseURL
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
