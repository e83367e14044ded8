// Package app assembles the analysis and chat services from configuration.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/capitalize-ai/comment-consultant/internal/agent"
	"github.com/capitalize-ai/comment-consultant/internal/classifier"
	"github.com/capitalize-ai/comment-consultant/internal/config"
	"github.com/capitalize-ai/comment-consultant/internal/llm"
	natsclient "github.com/capitalize-ai/comment-consultant/internal/nats"
	"github.com/capitalize-ai/comment-consultant/internal/service"
	"github.com/capitalize-ai/comment-consultant/internal/store"
	"github.com/capitalize-ai/comment-consultant/internal/taxonomy"
	"github.com/capitalize-ai/comment-consultant/pkg/logger"
)

// App holds the wired components shared by the server and the CLI.
type App struct {
	Store    *store.SQLiteStore
	Taxonomy *taxonomy.Taxonomy
	Analysis *service.AnalysisService
	Chat     *service.ChatService

	// NATS and Events are nil when events are disabled.
	NATS   *natsclient.Client
	Events *natsclient.StreamManager

	logger *logger.Logger
}

// New opens the store, connects to NATS when enabled and builds the
// services. A missing LLM credential is not an error: runs that need the
// inference service then fail with llm.ErrUnavailable.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &App{
		Store:    st,
		Taxonomy: taxonomy.Default(),
		logger:   log,
	}

	if cfg.NATSEnabled {
		if err := a.connectNATS(ctx, cfg); err != nil {
			a.Close()
			return nil, err
		}
	}

	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		log.Warn("inference service not configured, analysis and chat will report it as unavailable",
			zap.String("provider", cfg.LLMProvider),
			zap.Error(err),
		)
		client = unavailableClient{provider: cfg.LLMProvider}
	}

	// A nil *StreamManager must not reach the services as a non-nil interface.
	var events service.EventPublisher
	if a.Events != nil {
		events = a.Events
	}

	c := classifier.New(client, a.Taxonomy, classifier.Options{
		Model:         cfg.ClassifierModel,
		BatchSize:     cfg.BatchSize,
		Concurrency:   cfg.BatchConcurrency,
		Timeout:       cfg.BatchTimeout,
		MaxTextLength: cfg.MaxTextLength,
		Temperature:   cfg.ClassifierTemperature,
	}, log)
	a.Analysis = service.NewAnalysisService(st, c, a.Taxonomy, events, service.AnalysisOptions{
		DefaultLimit:  cfg.AnalysisLimit,
		MinTextLength: cfg.MinTextLength,
	}, log)

	planner := agent.NewPlanner(client, a.Taxonomy, agent.PlannerOptions{
		Model:       cfg.AgentModel,
		MaxTokens:   cfg.AgentMaxTokens,
		Temperature: cfg.AgentTemperature,
	}, log)
	executor := agent.NewExecutor(st, a.Analysis, a.Taxonomy, log)
	a.Chat = service.NewChatService(
		agent.New(planner, executor, cfg.AgentTimeout, log),
		agent.NewSessionStore(cfg.SessionCapacity, cfg.SessionTTL),
		events,
		log,
	)

	log.Info("application assembled",
		zap.String("database", cfg.DatabasePath),
		zap.String("provider", client.Name()),
		zap.Bool("events", a.Events != nil),
	)
	return a, nil
}

func (a *App) connectNATS(ctx context.Context, cfg *config.Config) error {
	nc, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	a.NATS = nc

	sm := natsclient.NewStreamManager(nc)
	if err := sm.EnsureStream(ctx); err != nil {
		return fmt.Errorf("ensure stream: %w", err)
	}
	a.Events = sm
	return nil
}

// Close releases the store and the NATS connection.
func (a *App) Close() {
	if a.NATS != nil {
		a.NATS.Close()
	}
	if err := a.Store.Close(); err != nil {
		a.logger.Warn("failed to close store", zap.Error(err))
	}
}

func newLLMClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	key := cfg.APIKey()
	if key == "" {
		return nil, fmt.Errorf("no api key for provider %q", cfg.LLMProvider)
	}
	return llm.NewClient(ctx, llm.Provider(cfg.LLMProvider), llm.Options{
		APIKey:  key,
		BaseURL: cfg.BaseURL(),
	})
}

// unavailableClient stands in for an unconfigured provider.
type unavailableClient struct {
	provider string
}

func (c unavailableClient) Name() string     { return c.provider }
func (c unavailableClient) Models() []string { return nil }

func (c unavailableClient) Complete(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return nil, fmt.Errorf("%s: %w", c.provider, llm.ErrUnavailable)
}
