package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetUserMessage(t *testing.T) {
	assert.Equal(t, ErrNotAdmin.UserMsg, GetUserMessage(ErrNotAdmin))

	wrapped := fmt.Errorf("handling command: %w", ErrGroupsOnly)
	assert.Equal(t, ErrGroupsOnly.UserMsg, GetUserMessage(wrapped))

	assert.Equal(t,
		"An unexpected error occurred. Please try again later.",
		GetUserMessage(errors.New("boom")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrGatewayUnavailable))
	assert.False(t, IsRetryable(ErrNotAdmin))
	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestWrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Wrap(cause, "Telegram is slow right now.", true)

	assert.Equal(t, "dial tcp: timeout", err.Error())
	assert.Equal(t, "Telegram is slow right now.", GetUserMessage(err))
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, cause)
}
