package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/cinereserve/booking-engine/internal/model"
)

// ConfirmParams carries everything the durable confirmation
// transaction needs. PaidAmount comes from the payment provider (or
// the authenticated client), never from unverified input; Tolerance is
// the configured epsilon for currency rounding.
type ConfirmParams struct {
	BookingID     uint64
	UserID        uint64
	PaidAmount    float64
	Provider      string
	TransactionID string
	Tolerance     float64
}

// ConfirmationStore executes the atomic confirmation transaction
// against MySQL. All five mutations (seat flags, availability counter,
// booking transition, payment record) commit together or not at all;
// any failure leaves the ledger and the schedule exactly as they were,
// so the caller can safely retry.
type ConfirmationStore struct {
	db        *sql.DB
	schedules *ScheduleRepo
	bookings  *BookingRepo
	payments  *PaymentRepo
}

// NewConfirmationStore constructs a ConfirmationStore. All
// dependencies must be non-nil.
func NewConfirmationStore(db *sql.DB, schedules *ScheduleRepo, bookings *BookingRepo, payments *PaymentRepo) *ConfirmationStore {
	if db == nil || schedules == nil || bookings == nil || payments == nil {
		panic("nil dependency passed to NewConfirmationStore")
	}
	return &ConfirmationStore{db: db, schedules: schedules, bookings: bookings, payments: payments}
}

// Confirm runs the confirmation transaction:
//
//  1. load the booking row with a row lock; it must belong to the
//     caller and still be in the reserved state,
//  2. verify the paid amount against the ledger's expected amount
//     within the configured tolerance,
//  3. verify every seat of the booking is still unbooked,
//  4. flip the seat flags and recompute the category's availability,
//  5. transition the booking to confirmed and insert the payment
//     record (duplicate transaction ids insert nothing).
//
// On success it returns the confirmed booking. On any failure the
// transaction is rolled back and a sentinel or typed error from this
// package tells the caller which step refused.
func (s *ConfirmationStore) Confirm(ctx context.Context, p ConfirmParams) (*model.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin confirmation tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	booking, err := s.bookings.GetForUpdateTx(ctx, tx, p.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != p.UserID {
		return nil, ErrNotOwner
	}
	if booking.Status != model.StatusReserved {
		return nil, ErrBookingNotReserved
	}
	if math.Abs(p.PaidAmount-booking.ExpectedAmount) > p.Tolerance {
		return nil, &AmountMismatchError{Expected: booking.ExpectedAmount, Paid: p.PaidAmount}
	}

	category, err := s.schedules.CategoryForUpdateTx(ctx, tx, booking.ScheduleID, booking.Category)
	if err != nil {
		return nil, err
	}
	seats, err := s.schedules.SeatsForUpdateTx(ctx, tx, category.ID, booking.Seats)
	if err != nil {
		return nil, err
	}
	byNumber := make(map[string]model.Seat, len(seats))
	for _, seat := range seats {
		byNumber[seat.SeatNumber] = seat
	}
	seatIDs := make([]uint64, 0, len(booking.Seats))
	for _, number := range booking.Seats {
		seat, ok := byNumber[number]
		if !ok {
			// Booked through a layout that no longer matches the catalog.
			return nil, fmt.Errorf("seat %s missing from category %s: %w", number, booking.Category, ErrCategoryNotFound)
		}
		if seat.IsBooked {
			return nil, &SeatBookedError{Seat: number}
		}
		seatIDs = append(seatIDs, seat.ID)
	}

	if err := s.schedules.MarkSeatsBookedTx(ctx, tx, seatIDs); err != nil {
		return nil, fmt.Errorf("mark seats booked: %w", err)
	}
	if err := s.schedules.RecountAvailableTx(ctx, tx, category.ID); err != nil {
		return nil, fmt.Errorf("recount availability: %w", err)
	}

	confirmedAt := time.Now().UTC()
	if err := s.bookings.ConfirmTx(ctx, tx, booking.ID, p.PaidAmount, confirmedAt); err != nil {
		return nil, err
	}
	if _, err := s.payments.CreateTx(ctx, tx, &model.Payment{
		BookingID:     booking.ID,
		UserID:        booking.UserID,
		Amount:        p.PaidAmount,
		Provider:      p.Provider,
		TransactionID: p.TransactionID,
		Status:        "success",
	}); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit confirmation tx: %w", err)
	}
	committed = true

	booking.Status = model.StatusConfirmed
	booking.PaidAmount = p.PaidAmount
	booking.ConfirmedAt = &confirmedAt
	return booking, nil
}
