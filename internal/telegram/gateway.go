package telegram

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"join-gate-bot/internal/admission"
	"join-gate-bot/internal/config"
)

// Gateway implements admission.Gateway over the Telegram Bot API.
// Calls are bounded by the API client's HTTP timeout; the context is
// accepted for interface symmetry with the admission package.
type Gateway struct {
	api             *tgbotapi.BotAPI
	welcomeTemplate string
	pendingTemplate string
	logger          *slog.Logger
}

// NewGateway creates the Telegram-backed approval gateway.
func NewGateway(api *tgbotapi.BotAPI, cfg config.TelegramConfig, logger *slog.Logger) *Gateway {
	return &Gateway{
		api:             api,
		welcomeTemplate: cfg.WelcomeTemplate,
		pendingTemplate: cfg.PendingTemplate,
		logger:          logger,
	}
}

// Approve accepts the join request on the platform.
func (g *Gateway) Approve(_ context.Context, req admission.JoinRequest) error {
	_, err := g.api.Request(tgbotapi.ApproveChatJoinRequestConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: req.ChatID},
		UserID:     req.UserID,
	})
	if err != nil {
		return fmt.Errorf("approve join request for user %d: %w", req.UserID, err)
	}
	return nil
}

// NotifyWelcome greets the approved user in the chat with an HTML mention.
func (g *Gateway) NotifyWelcome(_ context.Context, req admission.JoinRequest) error {
	return g.sendTemplated(req, g.welcomeTemplate)
}

// NotifyPending tells the chat the request is queued for manual review.
func (g *Gateway) NotifyPending(_ context.Context, req admission.JoinRequest) error {
	return g.sendTemplated(req, g.pendingTemplate)
}

func (g *Gateway) sendTemplated(req admission.JoinRequest, template string) error {
	msg := tgbotapi.NewMessage(req.ChatID, fmt.Sprintf(template, mentionHTML(req)))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := g.api.Send(msg); err != nil {
		return fmt.Errorf("send message to chat %d: %w", req.ChatID, err)
	}
	return nil
}

// mentionHTML renders a tg://user mention so the greeting links the user
// even without a username.
func mentionHTML(req admission.JoinRequest) string {
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`,
		req.UserID, html.EscapeString(req.DisplayName()))
}
