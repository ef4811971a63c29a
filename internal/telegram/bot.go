package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"join-gate-bot/internal/config"
)

// Bot represents the Telegram bot
type Bot struct {
	api     *tgbotapi.BotAPI
	handler *Handler
	cfg     config.TelegramConfig
	logger  *slog.Logger

	// Track active update processing
	activeRequests sync.WaitGroup
}

// NewAPIClient builds the BotAPI client. The underlying HTTP client
// carries the gateway timeout so no platform call can stall a chat's
// processing indefinitely.
func NewAPIClient(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, &http.Client{
		Timeout: cfg.GatewayTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return api, nil
}

// NewBot assembles the bot around an existing API client and handler.
func NewBot(api *tgbotapi.BotAPI, cfg config.TelegramConfig, handler *Handler, logger *slog.Logger) *Bot {
	return &Bot{
		api:     api,
		handler: handler,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run starts long polling and blocks until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollingTimeout

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("bot started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("stopping bot, waiting for active updates")

			// Stop receiving updates
			b.api.StopReceivingUpdates()

			// Wait for active updates with timeout
			done := make(chan struct{})
			go func() {
				b.activeRequests.Wait()
				close(done)
			}()

			select {
			case <-done:
				b.logger.Info("all active updates completed")
			case <-time.After(25 * time.Second):
				b.logger.Warn("some updates may not have completed")
			}

			return ctx.Err()

		case update, ok := <-updates:
			if !ok {
				return nil
			}

			// Process update in goroutine
			b.activeRequests.Add(1)
			go func(upd tgbotapi.Update) {
				defer b.activeRequests.Done()

				// Create request context with timeout
				reqCtx, cancel := context.WithTimeout(ctx, b.cfg.RequestTimeout)
				defer cancel()

				b.handler.HandleUpdate(reqCtx, upd)
			}(update)
		}
	}
}

// RegisterWebhook tells Telegram to push updates to callbackURL.
func (b *Bot) RegisterWebhook(callbackURL string) error {
	wh, err := tgbotapi.NewWebhook(callbackURL)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

// RemoveWebhook clears any registered webhook so polling can take over.
func (b *Bot) RemoveWebhook() error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

// GetBotInfo returns information about the bot
func (b *Bot) GetBotInfo() tgbotapi.User {
	return b.api.Self
}
