package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cinereserve/booking-engine/internal/model"
	"github.com/cinereserve/booking-engine/internal/repository"
)

// ReservationConfig carries the tunables of the reservation flow.
type ReservationConfig struct {
	// LockTTL is how long a granted seat hold lives before it expires
	// passively in the lock store.
	LockTTL time.Duration
	// CutoffWindow is the minimum lead time before showtime during
	// which new reservations are refused.
	CutoffWindow time.Duration
}

// ReserveRequest is one reservation attempt by an authenticated user.
type ReserveRequest struct {
	UserID     uint64
	ScheduleID uint64
	Category   string
	Seats      []string
}

// ReserveResult is returned when a reservation is granted. The caller
// must confirm the booking with the expected amount before the TTL
// elapses or the hold is reclaimed.
type ReserveResult struct {
	BookingID      uint64   `json:"booking_id"`
	Seats          []string `json:"seats"`
	ExpectedAmount float64  `json:"expected_amount"`
	TTLSeconds     int      `json:"ttl_seconds"`
}

// ReservationService validates reservation requests against the
// schedule catalog, acquires the seat lock and writes the ledger
// entry. It never touches durable seat state; seat flags belong
// exclusively to the confirmation transaction.
type ReservationService struct {
	schedules ScheduleStore
	bookings  BookingStore
	locker    SeatLocker
	cfg       ReservationConfig
	now       func() time.Time
}

// NewReservationService constructs a ReservationService. All
// dependencies must be non-nil.
func NewReservationService(schedules ScheduleStore, bookings BookingStore, locker SeatLocker, cfg ReservationConfig) *ReservationService {
	if schedules == nil || bookings == nil || locker == nil {
		panic("nil dependency passed to NewReservationService")
	}
	return &ReservationService{
		schedules: schedules,
		bookings:  bookings,
		locker:    locker,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Reserve runs the lock operation: validate the request, acquire the
// seat lock atomically and create the ledger entry in the reserved
// state. Each validation failure returns a distinct error kind and
// leaves no state behind; a rejected acquisition reports exactly which
// seats conflicted.
func (s *ReservationService) Reserve(ctx context.Context, req ReserveRequest) (*ReserveResult, error) {
	seats := dedupeSeats(req.Seats)
	if len(seats) == 0 {
		return nil, ErrNoSeats
	}

	schedule, err := s.schedules.GetByID(ctx, req.ScheduleID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if now.After(schedule.StartsAt.Add(-s.cfg.CutoffWindow)) {
		return nil, ErrPastCutoff
	}

	category := schedule.Category(req.Category)
	if category == nil {
		return nil, repository.ErrCategoryNotFound
	}

	var unknown, booked []string
	for _, number := range seats {
		seat := category.Seat(number)
		if seat == nil {
			unknown = append(unknown, number)
			continue
		}
		if seat.IsBooked {
			booked = append(booked, number)
		}
	}
	if len(unknown) > 0 {
		return nil, &UnknownSeatsError{Seats: unknown}
	}
	if len(booked) > 0 {
		return nil, &SeatsBookedError{Seats: booked}
	}

	// Fast rejection before paying for a full acquisition attempt.
	// Advisory only: the acquire below re-checks atomically.
	conflicts, err := s.locker.Probe(ctx, req.ScheduleID, req.Category, seats)
	if err != nil {
		return nil, fmt.Errorf("probe seat locks: %w", err)
	}
	if len(conflicts) > 0 {
		return nil, &SeatsUnavailableError{Conflicts: conflicts}
	}

	// The token identifies this attempt, not just this user, so
	// repeated attempts by the same user never collide with each
	// other.
	holder := fmt.Sprintf("%d:%d:%s", req.UserID, now.UnixMilli(), uuid.NewString())

	res, err := s.locker.Acquire(ctx, req.ScheduleID, req.Category, seats, holder, s.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire seat locks: %w", err)
	}
	if !res.Granted {
		return nil, &SeatsUnavailableError{Conflicts: res.Conflicts}
	}

	// Never trust a client-supplied amount.
	expected := category.Price * float64(len(seats))

	booking := &model.Booking{
		UserID:         req.UserID,
		ScheduleID:     req.ScheduleID,
		Category:       req.Category,
		Seats:          seats,
		ExpectedAmount: expected,
		HolderToken:    holder,
		Status:         model.StatusReserved,
		ReservedAt:     now.UTC(),
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		// No partial state: give the seats back rather than leaving a
		// hold with no ledger entry behind it.
		if relErr := s.locker.Release(ctx, req.ScheduleID, req.Category, seats); relErr != nil {
			log.Printf("reservation: failed to release lock after ledger error: %v", relErr)
		}
		return nil, fmt.Errorf("create ledger entry: %w", err)
	}

	return &ReserveResult{
		BookingID:      booking.ID,
		Seats:          seats,
		ExpectedAmount: expected,
		TTLSeconds:     int(s.cfg.LockTTL.Seconds()),
	}, nil
}

// dedupeSeats drops empty and repeated seat identifiers while keeping
// the caller's order.
func dedupeSeats(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
