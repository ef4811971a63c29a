package admission

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockGateway is a testify double for the platform approval API.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Approve(ctx context.Context, req JoinRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockGateway) NotifyWelcome(ctx context.Context, req JoinRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockGateway) NotifyPending(ctx context.Context, req JoinRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(gw Gateway) (*Controller, *Store) {
	store := NewStore()
	return NewController(store, gw, testLogger()), store
}

func TestHandleJoinRequestQueuedWhenAutoAcceptOff(t *testing.T) {
	gw := new(MockGateway)
	c, store := newTestController(gw)
	ctx := context.Background()
	req := makeRequest(1, 100)

	gw.On("NotifyPending", ctx, req).Return(nil).Once()

	assert.Equal(t, ResultPending, c.HandleJoinRequest(ctx, req))
	assert.Equal(t, 1, store.PendingCount(1))

	gw.AssertExpectations(t)
	gw.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything)
}

func TestHandleJoinRequestDuplicateIsSilent(t *testing.T) {
	gw := new(MockGateway)
	c, store := newTestController(gw)
	ctx := context.Background()
	req := makeRequest(1, 100)

	gw.On("NotifyPending", ctx, req).Return(nil).Once()

	require.Equal(t, ResultPending, c.HandleJoinRequest(ctx, req))
	// A re-request from the same pending user: no mutation, no second notice.
	assert.Equal(t, ResultDuplicate, c.HandleJoinRequest(ctx, req))
	assert.Equal(t, 1, store.PendingCount(1))

	gw.AssertExpectations(t)
}

func TestHandleJoinRequestAutoApproves(t *testing.T) {
	gw := new(MockGateway)
	c, store := newTestController(gw)
	ctx := context.Background()
	req := makeRequest(2, 200)

	store.SetAutoAccept(2)
	gw.On("Approve", ctx, req).Return(nil).Once()
	gw.On("NotifyWelcome", ctx, req).Return(nil).Once()

	assert.Equal(t, ResultApproved, c.HandleJoinRequest(ctx, req))
	assert.Equal(t, 0, store.PendingCount(2))

	gw.AssertExpectations(t)
	gw.AssertNotCalled(t, "NotifyPending", mock.Anything, mock.Anything)
}

func TestHandleJoinRequestGatewayFailureStaysPending(t *testing.T) {
	gw := new(MockGateway)
	c, store := newTestController(gw)
	ctx := context.Background()
	req := makeRequest(1, 300)

	store.SetAutoAccept(1)
	gw.On("Approve", ctx, req).Return(errors.New("telegram: 502")).Once()

	assert.Equal(t, ResultGatewayError, c.HandleJoinRequest(ctx, req))
	// Never removed, so a later /accept retries it. No welcome was sent.
	assert.Equal(t, 1, store.PendingCount(1))

	gw.AssertExpectations(t)
	gw.AssertNotCalled(t, "NotifyWelcome", mock.Anything, mock.Anything)
}

func TestHandleJoinRequestWelcomeFailureStillApproved(t *testing.T) {
	gw := new(MockGateway)
	c, store := newTestController(gw)
	ctx := context.Background()
	req := makeRequest(1, 400)

	store.SetAutoAccept(1)
	gw.On("Approve", ctx, req).Return(nil).Once()
	gw.On("NotifyWelcome", ctx, req).Return(errors.New("blocked by user")).Once()

	assert.Equal(t, ResultApproved, c.HandleJoinRequest(ctx, req))
	assert.Equal(t, 0, store.PendingCount(1))

	gw.AssertExpectations(t)
}

func TestHandleJoinRequestRedeliveryAfterApproval(t *testing.T) {
	gw := new(MockGateway)
	c, _ := newTestController(gw)
	ctx := context.Background()
	req := makeRequest(1, 500)

	c.store.SetAutoAccept(1)
	gw.On("Approve", ctx, req).Return(nil).Once()
	gw.On("NotifyWelcome", ctx, req).Return(nil).Once()

	require.Equal(t, ResultApproved, c.HandleJoinRequest(ctx, req))
	// The platform redelivers the same event: dropped, not re-approved.
	assert.Equal(t, ResultAlreadyApproved, c.HandleJoinRequest(ctx, req))

	gw.AssertExpectations(t)
}

func TestAcceptAllApprovesBacklogInOrder(t *testing.T) {
	gw := new(MockGateway)
	c, store := newTestController(gw)
	ctx := context.Background()

	first := makeRequest(1, 10)
	second := makeRequest(1, 11)
	gw.On("NotifyPending", ctx, mock.Anything).Return(nil).Twice()
	require.Equal(t, ResultPending, c.HandleJoinRequest(ctx, first))
	require.Equal(t, ResultPending, c.HandleJoinRequest(ctx, second))

	var order []int64
	gw.On("Approve", ctx, mock.Anything).Run(func(args mock.Arguments) {
		order = append(order, args.Get(1).(JoinRequest).UserID)
	}).Return(nil).Twice()
	gw.On("NotifyWelcome", ctx, mock.Anything).Return(nil).Twice()

	approved, retained := c.AcceptAll(ctx, 1)
	assert.Equal(t, 2, approved)
	assert.Equal(t, 0, retained)
	assert.Equal(t, []int64{10, 11}, order)
	assert.Equal(t, 0, store.PendingCount(1))
	assert.True(t, store.IsAutoAccept(1))

	gw.AssertExpectations(t)
}

func TestAcceptAllRetainsFailedItems(t *testing.T) {
	gw := new(MockGateway)
	c, store := newTestController(gw)
	ctx := context.Background()

	good := makeRequest(1, 10)
	bad := makeRequest(1, 11)
	require.Equal(t, Accepted, store.Enqueue(1, good))
	require.Equal(t, Accepted, store.Enqueue(1, bad))

	gw.On("Approve", ctx, good).Return(nil).Once()
	gw.On("Approve", ctx, bad).Return(errors.New("telegram: 502")).Once()
	gw.On("NotifyWelcome", ctx, good).Return(nil).Once()

	approved, retained := c.AcceptAll(ctx, 1)
	assert.Equal(t, 1, approved)
	assert.Equal(t, 1, retained)
	assert.Equal(t, 1, store.PendingCount(1))

	// A second run retries exactly the retained item.
	gw.On("Approve", ctx, bad).Return(nil).Once()
	gw.On("NotifyWelcome", ctx, bad).Return(nil).Once()

	approved, retained = c.AcceptAll(ctx, 1)
	assert.Equal(t, 1, approved)
	assert.Equal(t, 0, retained)
	assert.Equal(t, 0, store.PendingCount(1))

	gw.AssertExpectations(t)
}

func TestAcceptAllOnEmptyQueueIsIdempotent(t *testing.T) {
	gw := new(MockGateway)
	c, store := newTestController(gw)
	ctx := context.Background()

	store.SetAutoAccept(1)
	approved, retained := c.AcceptAll(ctx, 1)
	assert.Equal(t, 0, approved)
	assert.Equal(t, 0, retained)
	assert.True(t, store.IsAutoAccept(1))

	gw.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything)
}
