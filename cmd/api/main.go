// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/comment-consultant/internal/app"
	"github.com/capitalize-ai/comment-consultant/internal/config"
	"github.com/capitalize-ai/comment-consultant/internal/handler"
	"github.com/capitalize-ai/comment-consultant/pkg/logger"
	"github.com/capitalize-ai/comment-consultant/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "comment-consultant", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", zap.Error(err))
		os.Exit(1)
	}
	defer application.Close()

	// Readiness only checks NATS when it is in use.
	var natsConn handler.Connectivity
	if application.NATS != nil {
		natsConn = application.NATS
	}

	router := handler.NewRouter(handler.RouterConfig{
		Health:          handler.NewHealthHandler(application.Store, natsConn),
		Chat:            handler.NewChatHandler(application.Chat, log),
		Videos:          handler.NewVideoHandler(application.Analysis, application.Store, application.Taxonomy, log),
		Stream:          handler.NewStreamHandler(application.Analysis, 15*time.Second, log),
		JWTSecret:       cfg.JWTSecret,
		RateLimit:       cfg.RateLimitRequests,
		RateLimitWindow: cfg.RateLimitWindow,
		ChatRateLimit:   cfg.ChatRateLimit,
		CORSOrigins:     cfg.CORSOrigins,
		Logger:          log,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
