package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cinereserve/booking-engine/internal/model"
	"github.com/cinereserve/booking-engine/internal/queue"
	"github.com/cinereserve/booking-engine/internal/repository"
)

// confirmMarkerPrefix namespaces idempotency markers in Redis. A
// marker proves a booking's confirmation has already been fully
// processed, so duplicate webhook deliveries and duplicate client
// retries return the prior success without repeating side effects.
const confirmMarkerPrefix = "booking:confirm:"

// ConfirmationConfig carries the tunables of the confirmation flow.
type ConfirmationConfig struct {
	// AmountTolerance is the epsilon within which the paid amount must
	// match the ledger's expected amount. Exact match vs. a small
	// rounding epsilon is a policy choice, so it is configuration
	// rather than a constant.
	AmountTolerance float64
	// MarkerTTL is how long the idempotency marker outlives a
	// successful confirmation.
	MarkerTTL time.Duration
}

// ConfirmRequest is one confirmation attempt. It may originate from an
// authenticated client call or from a signature-verified provider
// callback; by the time it reaches the service both are equally
// trusted.
type ConfirmRequest struct {
	BookingID     uint64
	UserID        uint64
	PaidAmount    float64
	Provider      string
	TransactionID string
}

// ConfirmResult reports the outcome of a confirmation. Replayed is
// true when the idempotency marker short-circuited the call; Booking
// is nil in that case.
type ConfirmResult struct {
	Booking  *model.Booking
	Replayed bool
}

// ConfirmationService orchestrates the idempotent transition from
// reserved to confirmed: marker check, durable transaction, then
// marker set, lock release and event publish strictly after commit.
type ConfirmationService struct {
	store  BookingConfirmer
	locker SeatLocker
	rdb    *redis.Client
	events EventPublisher
	cfg    ConfirmationConfig
}

// NewConfirmationService constructs a ConfirmationService. The events
// publisher may be nil to disable event publishing; everything else
// must be non-nil.
func NewConfirmationService(store BookingConfirmer, locker SeatLocker, rdb *redis.Client, events EventPublisher, cfg ConfirmationConfig) *ConfirmationService {
	if store == nil || locker == nil || rdb == nil {
		panic("nil dependency passed to NewConfirmationService")
	}
	return &ConfirmationService{store: store, locker: locker, rdb: rdb, events: events, cfg: cfg}
}

// markerKey builds the idempotency marker key for a booking.
func markerKey(bookingID uint64) string {
	return fmt.Sprintf("%s%d", confirmMarkerPrefix, bookingID)
}

// Confirm applies a payment to a reserved booking at most once.
// Failures inside the durable transaction mutate nothing and are safe
// to retry; a repeated call after success is absorbed by the marker
// (and, should the marker be lost, by the terminal booking status
// inside the transaction itself).
func (s *ConfirmationService) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	key := markerKey(req.BookingID)
	_, err := s.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		return &ConfirmResult{Replayed: true}, nil
	case !errors.Is(err, redis.Nil):
		// The marker is an optimization; the transaction's status guard
		// stays authoritative even when Redis is unreachable.
		log.Printf("confirmation: marker check failed for booking %d: %v", req.BookingID, err)
	}

	booking, err := s.store.Confirm(ctx, repository.ConfirmParams{
		BookingID:     req.BookingID,
		UserID:        req.UserID,
		PaidAmount:    req.PaidAmount,
		Provider:      req.Provider,
		TransactionID: req.TransactionID,
		Tolerance:     s.cfg.AmountTolerance,
	})
	if err != nil {
		return nil, err
	}

	// Post-commit only: the booking outcome is already durable, so
	// every step below is best-effort and must never undo anything.
	if err := s.rdb.Set(ctx, key, "done", s.cfg.MarkerTTL).Err(); err != nil {
		log.Printf("confirmation: failed to set marker for booking %d: %v", booking.ID, err)
	}
	if err := s.locker.Release(ctx, booking.ScheduleID, booking.Category, booking.Seats); err != nil {
		log.Printf("confirmation: failed to release lock for booking %d: %v", booking.ID, err)
	}
	if s.events != nil {
		event := queue.BookingConfirmedEvent{
			BookingID:     booking.ID,
			UserID:        booking.UserID,
			ScheduleID:    booking.ScheduleID,
			Category:      booking.Category,
			Seats:         booking.Seats,
			Amount:        booking.PaidAmount,
			Provider:      req.Provider,
			TransactionID: req.TransactionID,
		}
		if booking.ConfirmedAt != nil {
			event.ConfirmedAt = booking.ConfirmedAt.UTC().Format(time.RFC3339)
		}
		if err := s.events.PublishBookingConfirmed(ctx, event); err != nil {
			log.Printf("confirmation: failed to publish event for booking %d: %v", booking.ID, err)
		}
	}

	return &ConfirmResult{Booking: booking}, nil
}
