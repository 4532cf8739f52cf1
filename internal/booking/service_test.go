package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rental-console/internal/gateway"
	"rental-console/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockOrders struct {
	mu       sync.Mutex
	calls    []models.BookingRequest
	tokens   []string
	createFn func(ctx context.Context, token string, req models.BookingRequest) (*models.RentalOrder, error)
}

var _ OrderCreator = (*mockOrders)(nil)

func (m *mockOrders) CreateOrder(ctx context.Context, token string, req models.BookingRequest) (*models.RentalOrder, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.tokens = append(m.tokens, token)
	fn := m.createFn
	m.mu.Unlock()
	if fn == nil {
		return &models.RentalOrder{ID: "o1", ItemID: req.ItemID, StartDate: req.StartDate, EndDate: req.EndDate, TotalPrice: req.TotalPrice}, nil
	}
	return fn(ctx, token, req)
}

func (m *mockOrders) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

var (
	drill   = models.RentalItem{ID: "item-1", Name: "Drill", OwnerUserID: "owner", PricePerDay: 200, AvailableCount: 2}
	session = &models.Session{UserID: "u1", RoleName: "CUSTOMER", BearerToken: "tok-u1"}
)

func TestSubmitComputesTotal(t *testing.T) {
	orders := &mockOrders{}
	svc := NewService(orders, zaptest.NewLogger(t))

	order, err := svc.Submit(context.Background(), session, drill, "2025-11-01", "2025-11-03")
	require.NoError(t, err)
	require.NotNil(t, order)

	require.Len(t, orders.calls, 1)
	assert.Equal(t, models.BookingRequest{
		ItemID:     "item-1",
		StartDate:  "2025-11-01",
		EndDate:    "2025-11-03",
		TotalPrice: 600,
	}, orders.calls[0])
	assert.Equal(t, "tok-u1", orders.tokens[0])
	assert.Equal(t, 600.0, order.TotalPrice)
}

func TestSubmitRequiresDates(t *testing.T) {
	orders := &mockOrders{}
	svc := NewService(orders, nil)

	_, err := svc.Submit(context.Background(), session, drill, "", "2025-11-03")
	assert.ErrorIs(t, err, ErrDatesRequired)

	_, err = svc.Submit(context.Background(), session, drill, "2025-11-01", " ")
	assert.ErrorIs(t, err, ErrDatesRequired)

	assert.Equal(t, 0, orders.callCount(), "validation errors never reach the backend")
	assert.Equal(t, "Please select start and end dates", FailureMessage(err))
}

func TestSubmitReversedRangeSubmitsZero(t *testing.T) {
	orders := &mockOrders{}
	svc := NewService(orders, nil)

	_, err := svc.Submit(context.Background(), session, drill, "2025-11-03", "2025-11-01")
	require.NoError(t, err)
	require.Len(t, orders.calls, 1)
	assert.Equal(t, 0.0, orders.calls[0].TotalPrice)
}

func TestSubmitOwnItemIsNotBlocked(t *testing.T) {
	orders := &mockOrders{}
	svc := NewService(orders, nil)

	own := drill
	own.OwnerUserID = session.UserID
	_, err := svc.Submit(context.Background(), session, own, "2025-11-01", "2025-11-01")
	require.NoError(t, err)
	assert.Equal(t, 1, orders.callCount())
}

func TestSubmitBackendFailure(t *testing.T) {
	orders := &mockOrders{
		createFn: func(context.Context, string, models.BookingRequest) (*models.RentalOrder, error) {
			return nil, &gateway.APIError{Status: 400, Message: "Item is not available"}
		},
	}
	svc := NewService(orders, zaptest.NewLogger(t))

	_, err := svc.Submit(context.Background(), session, drill, "2025-11-01", "2025-11-03")
	require.Error(t, err)
	assert.Equal(t, "Item is not available", FailureMessage(err))
	assert.Equal(t, 1, orders.callCount(), "no retry")

	// The guard is released after a failure so the user can resubmit.
	orders.createFn = nil
	_, err = svc.Submit(context.Background(), session, drill, "2025-11-01", "2025-11-03")
	assert.NoError(t, err)
}

func TestFailureMessageFallback(t *testing.T) {
	assert.Equal(t, FailedToCreateOrder, FailureMessage(errors.New("dial tcp: connection refused")))
	assert.Equal(t, FailedToCreateOrder, FailureMessage(&gateway.APIError{Status: 500}))
	assert.Equal(t, "", FailureMessage(nil))
}

func TestSubmitRejectsConcurrentDuplicate(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	orders := &mockOrders{
		createFn: func(_ context.Context, _ string, req models.BookingRequest) (*models.RentalOrder, error) {
			close(started)
			<-unblock
			return &models.RentalOrder{ID: "o1", ItemID: req.ItemID}, nil
		},
	}
	svc := NewService(orders, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), session, drill, "2025-11-01", "2025-11-03")
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first submission never reached the backend")
	}

	_, err := svc.Submit(context.Background(), session, drill, "2025-11-01", "2025-11-03")
	assert.ErrorIs(t, err, ErrSubmissionInProgress)

	// A different item is independent.
	other := drill
	other.ID = "item-2"
	orders.mu.Lock()
	orders.createFn = nil
	orders.mu.Unlock()
	_, err = svc.Submit(context.Background(), session, other, "2025-11-01", "2025-11-03")
	assert.NoError(t, err)

	close(unblock)
	require.NoError(t, <-done)
	assert.Equal(t, 2, orders.callCount())
}
