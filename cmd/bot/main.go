package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"join-gate-bot/internal/admission"
	"join-gate-bot/internal/config"
	"join-gate-bot/internal/limiter"
	"join-gate-bot/internal/telegram"
	"join-gate-bot/internal/webhook"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	var logLevel slog.Level
	switch cfg.Logging.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if cfg.Logging.JSONFormat {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	// Create root context with cancellation
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// WaitGroup for tracking active goroutines
	var wg sync.WaitGroup

	// Initialize Telegram API client
	api, err := telegram.NewAPIClient(cfg.Telegram)
	if err != nil {
		logger.Error("failed to create telegram client", "error", err)
		os.Exit(1)
	}

	// Assemble the admission pipeline
	store := admission.NewStore()
	gateway := telegram.NewGateway(api, cfg.Telegram, logger)
	controller := admission.NewController(store, gateway, logger)
	perms := telegram.NewPermissions(api, logger)
	accepts := limiter.NewKeyLimiter(0)
	updateHandler := telegram.NewHandler(api, controller, perms, accepts, cfg.Telegram.SupportURL, logger)
	bot := telegram.NewBot(api, cfg.Telegram, updateHandler, logger)

	if cfg.Webhook.Enabled {
		// Webhook mode: Telegram pushes updates to our HTTP endpoint.
		if err := bot.RegisterWebhook(cfg.CallbackURL()); err != nil {
			logger.Error("failed to register webhook", "error", err)
			os.Exit(1)
		}

		server := webhook.NewServer(cfg.Webhook, cfg.Telegram.RequestTimeout, updateHandler, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Run(rootCtx); err != nil && err != context.Canceled {
				logger.Error("webhook server error", "error", err)
			}
		}()

		logger.Info("bot started in webhook mode",
			"username", bot.GetBotInfo().UserName,
			"listen_addr", cfg.Webhook.ListenAddr,
		)
	} else {
		// Polling mode: clear any stale webhook first, Telegram refuses
		// getUpdates while one is registered.
		if err := bot.RemoveWebhook(); err != nil {
			logger.Warn("failed to remove webhook", "error", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bot.Run(rootCtx); err != nil && err != context.Canceled {
				logger.Error("bot error", "error", err)
			}
		}()

		logger.Info("bot started in polling mode",
			"username", bot.GetBotInfo().UserName,
		)
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutdown signal received", "signal", sig)

	// Cancel root context to signal all goroutines
	rootCancel()

	// Wait for graceful shutdown with timeout
	shutdownTimeout := 30 * time.Second
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("graceful shutdown complete")
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timeout exceeded, forcing exit")
	}
}
