package errors

import (
	"errors"
)

// UserError represents an error with both technical and user-friendly messages
type UserError struct {
	Err       error
	UserMsg   string
	Retryable bool
}

func (e *UserError) Error() string {
	return e.Err.Error()
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// Predefined errors
var (
	ErrGroupsOnly = &UserError{
		Err:       errors.New("command used outside a group chat"),
		UserMsg:   "This command only works in groups.",
		Retryable: false,
	}

	ErrNotAdmin = &UserError{
		Err:       errors.New("invoker is not a chat admin"),
		UserMsg:   "You must be an admin to use this command.",
		Retryable: false,
	}

	ErrMissingInvitePermission = &UserError{
		Err:       errors.New("bot lacks can_invite_users"),
		UserMsg:   "I can't approve join requests yet. Please grant me the 'Invite Users' admin permission and try again.",
		Retryable: false,
	}

	ErrAcceptInProgress = &UserError{
		Err:       errors.New("accept run already in progress"),
		UserMsg:   "An approval run is already in progress for this chat. Please wait for it to finish.",
		Retryable: true,
	}

	ErrGatewayUnavailable = &UserError{
		Err:       errors.New("telegram api unavailable"),
		UserMsg:   "Telegram is not responding right now. Please try again later.",
		Retryable: true,
	}
)

// Wrap wraps a technical error with a user message
func Wrap(err error, userMsg string, retryable bool) *UserError {
	return &UserError{
		Err:       err,
		UserMsg:   userMsg,
		Retryable: retryable,
	}
}

// GetUserMessage extracts user-friendly message from error
func GetUserMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMsg
	}
	// Default message for unexpected errors
	return "An unexpected error occurred. Please try again later."
}

// IsRetryable checks if an error can be retried
func IsRetryable(err error) bool {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.Retryable
	}
	return false
}
