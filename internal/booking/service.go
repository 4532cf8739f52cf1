package booking

import (
	"context"
	"errors"
	"strings"
	"sync"

	"rental-console/internal/gateway"
	"rental-console/internal/models"

	"go.uber.org/zap"
)

// FailedToCreateOrder is shown when the backend gives no usable message.
const FailedToCreateOrder = "Failed to create order"

var (
	// ErrDatesRequired is a validation error raised before any network call.
	ErrDatesRequired = errors.New("Please select start and end dates")
	// ErrSubmissionInProgress is returned while an identical submission is outstanding.
	ErrSubmissionInProgress = errors.New("An order for this item is already being placed")
)

// OrderCreator is the part of the gateway Submit needs.
type OrderCreator interface {
	CreateOrder(ctx context.Context, token string, req models.BookingRequest) (*models.RentalOrder, error)
}

// Service sequences a quote into a create-order call.
type Service struct {
	orders OrderCreator
	log    *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewService returns a Service submitting through orders.
func NewService(orders OrderCreator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{orders: orders, log: log, inFlight: make(map[string]struct{})}
}

// Submit books item from start to end for the session's user. It never
// retries; the caller resubmits on failure.
func (s *Service) Submit(ctx context.Context, sess *models.Session, item models.RentalItem, start, end string) (*models.RentalOrder, error) {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	if start == "" || end == "" {
		return nil, ErrDatesRequired
	}

	key := submissionKey(sess, item.ID)
	if !s.acquire(key) {
		return nil, ErrSubmissionInProgress
	}
	defer s.release(key)

	quote := Calculate(start, end, item.PricePerDay)
	req := models.BookingRequest{
		ItemID:     item.ID,
		StartDate:  start,
		EndDate:    end,
		TotalPrice: quote.TotalPrice,
	}

	var token string
	if sess != nil {
		token = sess.BearerToken
	}

	order, err := s.orders.CreateOrder(ctx, token, req)
	if err != nil {
		s.log.Error("create order failed",
			zap.String("item_id", item.ID),
			zap.Int("days", quote.Days),
			zap.Error(err),
		)
		return nil, err
	}

	s.log.Info("order created",
		zap.String("item_id", item.ID),
		zap.String("order_id", order.ID),
		zap.Int("days", quote.Days),
		zap.Float64("total_price", quote.TotalPrice),
	)
	return order, nil
}

// FailureMessage is the user-facing text for a Submit error.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrDatesRequired) || errors.Is(err, ErrSubmissionInProgress) {
		return err.Error()
	}
	return gateway.MessageOf(err, FailedToCreateOrder)
}

func (s *Service) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *Service) release(key string) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}

func submissionKey(sess *models.Session, itemID string) string {
	owner := ""
	if sess != nil {
		owner = sess.UserID
		if owner == "" {
			owner = sess.BearerToken
		}
	}
	return owner + "\x00" + itemID
}
