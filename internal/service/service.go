// Package service implements the three request/job flows of the
// booking engine: reserving seats, confirming a paid reservation, and
// reconciling reservations that were abandoned without payment. The
// services are stateless and share nothing in process; all
// coordination happens through the seat lock store (Redis) and the
// booking ledger (MySQL), so any number of instances may run
// concurrently.
package service

import (
	"context"
	"time"

	"github.com/cinereserve/booking-engine/internal/lock"
	"github.com/cinereserve/booking-engine/internal/model"
	"github.com/cinereserve/booking-engine/internal/queue"
	"github.com/cinereserve/booking-engine/internal/repository"
)

// ScheduleStore reads the schedule catalog. Implemented by
// repository.ScheduleRepo.
type ScheduleStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Schedule, error)
}

// BookingStore accesses the booking ledger. Implemented by
// repository.BookingRepo.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	ListStaleReserved(ctx context.Context, before time.Time, limit int) ([]model.Booking, error)
	MarkAbandoned(ctx context.Context, id uint64) (bool, error)
}

// SeatLocker is the atomic ephemeral seat lock store. Implemented by
// lock.Manager.
type SeatLocker interface {
	Acquire(ctx context.Context, scheduleID uint64, category string, seats []string, holder string, ttl time.Duration) (*lock.AcquireResult, error)
	Release(ctx context.Context, scheduleID uint64, category string, seats []string) error
	ReleaseOwned(ctx context.Context, scheduleID uint64, category string, seats []string, holder string) (int, error)
	Probe(ctx context.Context, scheduleID uint64, category string, seats []string) ([]lock.Conflict, error)
}

// BookingConfirmer runs the durable confirmation transaction.
// Implemented by repository.ConfirmationStore.
type BookingConfirmer interface {
	Confirm(ctx context.Context, p repository.ConfirmParams) (*model.Booking, error)
}

// EventPublisher delivers booking lifecycle events to the broker.
// Implemented by queue.Publisher.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, event queue.BookingConfirmedEvent) error
	PublishBookingAbandoned(ctx context.Context, event queue.BookingAbandonedEvent) error
}
