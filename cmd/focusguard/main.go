package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xaenox/focusguard/internal/app"
	"github.com/xaenox/focusguard/pkg/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "focusguard",
		Short:         "Focus tracking and distraction alerts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newClassifyCmd(&configPath))
	return root
}

func setup(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := app.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, WebSocket notifications and Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.Serve(ctx)
		},
	}
}

func newClassifyCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <title...>",
		Short: "Classify a window title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()

			engine, err := app.NewClassifier(cfg.Classifier, cfg.OpenAI, logger)
			if err != nil {
				return err
			}
			result := engine.Classify(context.Background(), strings.Join(args, " "))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "category=%s confidence=%.2f distraction=%v sentiment=%s\n%s\n",
				result.Category, result.Confidence, result.IsDistraction, result.Sentiment, result.Reasoning)
			return nil
		},
	}
}
