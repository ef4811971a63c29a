package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"join-gate-bot/internal/admission"
	apperrors "join-gate-bot/internal/errors"
	"join-gate-bot/internal/limiter"
)

// MessageSender is the slice of the Bot API used for replies.
// *tgbotapi.BotAPI satisfies it.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Handler routes Telegram updates to the admission pipeline.
type Handler struct {
	sender     MessageSender
	controller *admission.Controller
	perms      PermissionChecker
	accepts    *limiter.KeyLimiter
	supportURL string
	logger     *slog.Logger
}

// NewHandler creates a new update handler.
func NewHandler(
	sender MessageSender,
	controller *admission.Controller,
	perms PermissionChecker,
	accepts *limiter.KeyLimiter,
	supportURL string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		sender:     sender,
		controller: controller,
		perms:      perms,
		accepts:    accepts,
		supportURL: supportURL,
		logger:     logger,
	}
}

// HandleUpdate processes a single update. Join-request events go to the
// admission controller, commands to their handlers, everything else is
// ignored.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.ChatJoinRequest != nil {
		h.handleJoinRequest(ctx, update.ChatJoinRequest)
		return
	}

	if update.Message == nil || !update.Message.IsCommand() {
		return
	}

	h.handleCommand(ctx, update.Message)
}

func (h *Handler) handleJoinRequest(ctx context.Context, jr *tgbotapi.ChatJoinRequest) {
	req := admission.JoinRequest{
		UserID:     jr.From.ID,
		FirstName:  jr.From.FirstName,
		Username:   jr.From.UserName,
		ChatID:     jr.Chat.ID,
		ReceivedAt: time.Unix(int64(jr.Date), 0),
	}
	h.controller.HandleJoinRequest(ctx, req)
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		h.handleStart(msg)

	case "accept":
		h.handleAccept(ctx, msg)

	case "status":
		h.handleStatus(msg)

	case "pending":
		count := h.controller.PendingCount(msg.Chat.ID)
		h.sendText(msg.Chat.ID, fmt.Sprintf("%d join requests are pending.", count))

	default:
		// Groups see plenty of commands meant for other bots.
		if msg.Chat.IsPrivate() {
			h.sendText(msg.Chat.ID, "Unknown command. Use /help for available commands.")
		}
	}
}

func (h *Handler) handleStart(msg *tgbotapi.Message) {
	reply := tgbotapi.NewMessage(msg.Chat.ID,
		"I approve join requests for your group.\n\n"+
			"Add me as an admin with the 'Invite Users' permission, then run "+
			"/accept in the group to approve everyone waiting and auto-approve "+
			"future requests.\n\n"+
			"Commands:\n"+
			"/accept - approve pending requests and enable auto-accept\n"+
			"/status - show the admission status for this chat\n"+
			"/pending - show how many requests are waiting\n"+
			"/help - show this message")
	if h.supportURL != "" {
		reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("Support", h.supportURL),
			),
		)
	}
	if _, err := h.sender.Send(reply); err != nil {
		h.logger.Error("failed to send start message", "error", err, "chat_id", msg.Chat.ID)
	}
}

// handleAccept runs the admin batch-approval command. Preconditions are
// checked in order and each failure short-circuits with a user-visible
// reply, leaving all state untouched.
func (h *Handler) handleAccept(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if !msg.Chat.IsGroup() && !msg.Chat.IsSuperGroup() {
		h.sendText(chatID, apperrors.ErrGroupsOnly.UserMsg)
		return
	}

	if msg.From == nil || !h.perms.IsChatAdmin(ctx, chatID, msg.From.ID) {
		h.sendText(chatID, apperrors.ErrNotAdmin.UserMsg)
		return
	}

	if !h.perms.BotCanInvite(ctx, chatID) {
		h.sendText(chatID, apperrors.ErrMissingInvitePermission.UserMsg)
		return
	}

	if !h.accepts.TryAcquire(chatID) {
		h.sendText(chatID, apperrors.ErrAcceptInProgress.UserMsg)
		return
	}
	defer h.accepts.Release(chatID)

	h.logger.Info("accept command invoked", "chat_id", chatID, "user_id", msg.From.ID)

	approved, retained := h.controller.AcceptAll(ctx, chatID)

	reply := fmt.Sprintf("Approved %d pending requests.", approved)
	if retained > 0 {
		reply += fmt.Sprintf(" %d could not be approved and remain pending.", retained)
	}
	h.sendText(chatID, reply)
}

func (h *Handler) handleStatus(msg *tgbotapi.Message) {
	mode := "manual approval"
	if h.controller.IsAutoAccept(msg.Chat.ID) {
		mode = "auto-accept"
	}
	h.sendText(msg.Chat.ID, fmt.Sprintf(
		"Admission mode: %s\nPending requests: %d",
		mode, h.controller.PendingCount(msg.Chat.ID)))
}

func (h *Handler) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.sender.Send(msg); err != nil {
		h.logger.Error("failed to send message", "error", err, "chat_id", chatID)
	}
}
