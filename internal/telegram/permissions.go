package telegram

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// PermissionChecker answers the membership questions the accept command
// depends on. Lookup failures are treated as deny.
type PermissionChecker interface {
	// IsChatAdmin reports whether userID is a creator or administrator
	// of the chat.
	IsChatAdmin(ctx context.Context, chatID, userID int64) bool
	// BotCanInvite reports whether the bot identity may approve join
	// requests in the chat (can_invite_users).
	BotCanInvite(ctx context.Context, chatID int64) bool
}

// Permissions implements PermissionChecker over getChatMember.
type Permissions struct {
	api    *tgbotapi.BotAPI
	botID  int64
	logger *slog.Logger
}

// NewPermissions creates a permission checker for the bot's identity.
func NewPermissions(api *tgbotapi.BotAPI, logger *slog.Logger) *Permissions {
	return &Permissions{
		api:    api,
		botID:  api.Self.ID,
		logger: logger,
	}
}

// IsChatAdmin checks if a user is a creator or administrator of the chat
func (p *Permissions) IsChatAdmin(_ context.Context, chatID, userID int64) bool {
	member, err := p.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		p.logger.Error("failed to look up chat member",
			"error", err, "chat_id", chatID, "user_id", userID)
		return false
	}
	return member.IsCreator() || member.IsAdministrator()
}

// BotCanInvite checks if the bot holds the invite-users permission
func (p *Permissions) BotCanInvite(_ context.Context, chatID int64) bool {
	member, err := p.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: p.botID,
		},
	})
	if err != nil {
		p.logger.Error("failed to look up bot membership",
			"error", err, "chat_id", chatID)
		return false
	}
	if member.IsCreator() {
		return true
	}
	return member.IsAdministrator() && member.CanInviteUsers
}
