// Package app wires configuration into the running FocusGuard components.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xaenox/focusguard/internal/api"
	"github.com/xaenox/focusguard/internal/bot"
	"github.com/xaenox/focusguard/internal/classifier"
	"github.com/xaenox/focusguard/internal/focus"
	"github.com/xaenox/focusguard/internal/notifier"
	"github.com/xaenox/focusguard/internal/storage"
	"github.com/xaenox/focusguard/internal/tracker"
	"github.com/xaenox/focusguard/pkg/config"
)

type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Store   storage.Storage
	Service *focus.Service
	Emitter *notifier.Emitter
	Hub     *notifier.Hub

	closers []func() error
}

// NewLogger builds the process logger from the logging section.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("failed to parse log level: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}

// NewClassifier builds the classification engine. Remote capabilities are
// only enabled when an OpenAI key is configured.
func NewClassifier(cfg config.ClassifierConfig, openaiCfg config.OpenAIConfig, logger *zap.Logger) (*classifier.Engine, error) {
	pattern := classifier.NewPatternClassifier()

	var semantic *classifier.SemanticClassifier
	if cfg.SemanticEnabled && openaiCfg.APIKey != "" {
		profiles, err := classifier.LoadProfiles(cfg.ProfilesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load category profiles: %w", err)
		}
		embedder := classifier.NewOpenAIEmbedder(openaiCfg.APIKey, openaiCfg.EmbeddingModel)
		semantic = classifier.NewSemanticClassifier(embedder, profiles, pattern, cfg.CapabilityTimeout, logger)
		logger.Info("Semantic classifier enabled", zap.String("model", openaiCfg.EmbeddingModel))
	}

	var preferred classifier.SentimentAnalyzer
	switch cfg.SentimentProvider {
	case "", classifier.SentimentProviderLexicon:
	case classifier.SentimentProviderOpenAI:
		if openaiCfg.APIKey == "" {
			logger.Warn("OpenAI sentiment requested without an API key, using lexicon")
			break
		}
		preferred = classifier.NewOpenAISentiment(openaiCfg.APIKey, openaiCfg.ChatModel, openaiCfg.MaxTokens, openaiCfg.Temperature)
	default:
		return nil, fmt.Errorf("unknown sentiment provider %q", cfg.SentimentProvider)
	}
	sentiment := classifier.NewSentimentAnalyzer(preferred, cfg.CapabilityTimeout, cfg.MaxTextLength, logger)

	return classifier.NewEngine(pattern, semantic, sentiment, classifier.EngineConfig{
		Ensemble:  cfg.Ensemble,
		Whitelist: cfg.Whitelist,
	}, logger), nil
}

func newStorage(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (storage.Storage, error) {
	if cfg.UseInMemory {
		logger.Info("Using in-memory storage")
		return storage.NewMemoryStorage(), nil
	}

	logger.Info("Using PostgreSQL storage")
	return storage.NewPostgresStorage(ctx, storage.DatabaseConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		DBName:   cfg.DBName,
		SSLMode:  cfg.SSLMode,
	}, logger)
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	engine, err := NewClassifier(cfg.Classifier, cfg.OpenAI, logger)
	if err != nil {
		return nil, err
	}

	tr, err := tracker.New(tracker.Config{
		ThrottleInterval: cfg.Tracker.ThrottleInterval,
		RepeatInterval:   cfg.Tracker.RepeatInterval,
		ResetWindow:      cfg.Tracker.ResetWindow,
		MaxUsers:         cfg.Tracker.MaxUsers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracker: %w", err)
	}

	store, err := newStorage(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, Store: store}
	a.closers = append(a.closers, store.Close)

	a.Hub = notifier.NewHub(logger)
	a.Emitter = notifier.NewEmitter(store, store, logger, a.Hub)

	if cfg.Redis.URL != "" {
		redisPusher, err := notifier.NewRedisPusherFromURL(ctx, cfg.Redis.URL, cfg.Redis.Channel)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Emitter.AddPusher(redisPusher)
		a.closers = append(a.closers, redisPusher.Close)
		logger.Info("Publishing notifications to Redis", zap.String("channel", cfg.Redis.Channel))
	}

	a.Service = focus.NewService(engine, tr, store, a.Emitter, logger)
	return a, nil
}

// Serve runs the HTTP API, the tracker janitor, the plan reminder
// dispatcher and, when configured, the Telegram bot until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.Config.Telegram.Token != "" {
		b, err := bot.New(a.Config.Telegram.Token, a.Service, a.Logger)
		if err != nil {
			return err
		}
		a.Emitter.AddPusher(b)
		go func() {
			if err := b.Start(ctx); err != nil {
				a.Logger.Error("Bot error", zap.Error(err))
			}
		}()
	}

	if every := a.Config.Tracker.SweepInterval; every > 0 {
		go a.Service.RunJanitor(ctx, every)
	}
	if every := a.Config.Reminders.CheckInterval; every > 0 {
		go a.Service.RunReminders(ctx, every)
	}

	srv := &http.Server{
		Addr:              a.Config.Server.Addr,
		Handler:           api.NewServer(a.Service, a.Hub, a.Logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), timeout)
	defer stop()
	a.Logger.Info("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

// Close waits for in-flight notification deliveries and releases the
// storage and broker connections.
func (a *App) Close() error {
	if a.Emitter != nil {
		a.Emitter.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
