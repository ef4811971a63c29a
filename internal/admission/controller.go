package admission

import (
	"context"
	"log/slog"
)

// Gateway is the platform capability used to approve requests and
// message the chat. Implemented over the Telegram Bot API.
type Gateway interface {
	// Approve accepts the join request on the platform.
	Approve(ctx context.Context, req JoinRequest) error
	// NotifyWelcome greets an approved user in the chat. Failure is
	// non-fatal and never changes admission state.
	NotifyWelcome(ctx context.Context, req JoinRequest) error
	// NotifyPending tells the chat a request is queued for manual review.
	NotifyPending(ctx context.Context, req JoinRequest) error
}

// Result is the outcome of handling one join-request event.
type Result int

const (
	// ResultApproved: approved on the platform and removed from the queue.
	ResultApproved Result = iota
	// ResultPending: queued, waiting for an admin to run /accept.
	ResultPending
	// ResultDuplicate: the user already had a pending request; no mutation.
	ResultDuplicate
	// ResultAlreadyApproved: redelivered event for a recently approved
	// user; dropped.
	ResultAlreadyApproved
	// ResultGatewayError: auto-approval failed; the request stays pending
	// and is picked up by the next /accept run.
	ResultGatewayError
)

// Controller applies the admission policy to join-request events.
type Controller struct {
	store   *Store
	gateway Gateway
	logger  *slog.Logger
}

// NewController creates an admission controller.
func NewController(store *Store, gateway Gateway, logger *slog.Logger) *Controller {
	return &Controller{
		store:   store,
		gateway: gateway,
		logger:  logger,
	}
}

// HandleJoinRequest processes one inbound join-request event end-to-end.
// Every failure path degrades to "remains pending"; nothing is fatal.
func (c *Controller) HandleJoinRequest(ctx context.Context, req JoinRequest) Result {
	switch c.store.Enqueue(req.ChatID, req) {
	case Duplicate:
		c.logger.Debug("duplicate join request ignored",
			"chat_id", req.ChatID, "user_id", req.UserID)
		return ResultDuplicate
	case AlreadyApproved:
		c.logger.Debug("redelivered join request for approved user ignored",
			"chat_id", req.ChatID, "user_id", req.UserID)
		return ResultAlreadyApproved
	}

	if !c.store.IsAutoAccept(req.ChatID) {
		if err := c.gateway.NotifyPending(ctx, req); err != nil {
			c.logger.Error("failed to send pending notice",
				"error", err, "chat_id", req.ChatID, "user_id", req.UserID)
		}
		c.logger.Info("join request queued",
			"chat_id", req.ChatID, "user_id", req.UserID)
		return ResultPending
	}

	if err := c.gateway.Approve(ctx, req); err != nil {
		// Not removed from the queue, so a later /accept retries it.
		c.logger.Error("auto-approval failed, request stays pending",
			"error", err, "chat_id", req.ChatID, "user_id", req.UserID)
		return ResultGatewayError
	}

	c.store.Remove(req.ChatID, req.UserID)
	c.store.MarkApproved(req.ChatID, req.UserID)
	c.logger.Info("join request approved",
		"chat_id", req.ChatID, "user_id", req.UserID)

	if err := c.gateway.NotifyWelcome(ctx, req); err != nil {
		c.logger.Error("failed to send welcome message",
			"error", err, "chat_id", req.ChatID, "user_id", req.UserID)
	}
	return ResultApproved
}

// AcceptAll enables auto-accept for the chat and flushes its backlog in
// arrival order. Items whose approve call fails are re-queued at the
// head of the pending list, so batch and single-event paths share the
// same retention policy. Returns the approved and still-pending counts.
func (c *Controller) AcceptAll(ctx context.Context, chatID int64) (approved, stillPending int) {
	c.store.SetAutoAccept(chatID)

	batch := c.store.DrainPending(chatID)
	var failed []JoinRequest

	for _, req := range batch {
		if err := c.gateway.Approve(ctx, req); err != nil {
			c.logger.Error("batch approval failed, request retained",
				"error", err, "chat_id", chatID, "user_id", req.UserID)
			failed = append(failed, req)
			continue
		}
		c.store.MarkApproved(chatID, req.UserID)
		approved++
		if err := c.gateway.NotifyWelcome(ctx, req); err != nil {
			c.logger.Error("failed to send welcome message",
				"error", err, "chat_id", chatID, "user_id", req.UserID)
		}
	}

	if len(failed) > 0 {
		c.store.Requeue(chatID, failed)
	}

	c.logger.Info("batch accept finished",
		"chat_id", chatID, "approved", approved, "retained", len(failed))
	return approved, len(failed)
}

// PendingCount exposes the chat's queue length for status commands.
func (c *Controller) PendingCount(chatID int64) int {
	return c.store.PendingCount(chatID)
}

// IsAutoAccept exposes the chat's auto-accept flag for status commands.
func (c *Controller) IsAutoAccept(chatID int64) bool {
	return c.store.IsAutoAccept(chatID)
}
