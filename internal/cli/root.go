// Package cli provides the command-line interface for comment-consultant.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/comment-consultant/internal/agent"
	"github.com/capitalize-ai/comment-consultant/internal/app"
	"github.com/capitalize-ai/comment-consultant/internal/config"
	"github.com/capitalize-ai/comment-consultant/pkg/logger"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	dbPath  string

	cfg         *config.Config
	application *app.App
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "commentctl",
	Short: "Classify and explore YouTube comments",
	Long: `commentctl imports YouTube comments, classifies them by topic and
sentiment with an LLM, and answers questions about the results.

Configuration is read from the environment and an optional .env file, the
same way the API server reads it.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Commands that never touch the store skip setup.
		if cmd.Name() == "help" || cmd.Name() == "topics" {
			return nil
		}

		// A failed command skips PersistentPostRun.
		if application != nil {
			application.Close()
			application = nil
		}

		cfg = config.Load()
		if dbPath != "" {
			cfg.DatabasePath = dbPath
		}

		level := "warn"
		if verbose {
			level = "debug"
		}
		log, err := logger.NewConsole(level)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}

		application, err = app.New(context.Background(), cfg, log)
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if application != nil {
			application.Close()
			application = nil
		}
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides DATABASE_PATH)")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(commentsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(videosCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(topicsCmd)
}

// videoArg accepts a bare video id or any YouTube link.
func videoArg(ref string) (string, error) {
	id, ok := agent.ParseVideoRef(ref)
	if !ok {
		return "", fmt.Errorf("%q is not a YouTube video id or link", ref)
	}
	return id, nil
}
