// Package repository provides data access to the durable booking
// ledger and schedule catalog on MySQL. This file defines the error
// values shared across repositories. Sentinel values let the service
// and handler layers distinguish failure scenarios with errors.Is,
// while the typed errors below carry enough detail to tell the caller
// exactly which resource was at fault.
package repository

import (
	"errors"
	"fmt"
)

// ErrScheduleNotFound is returned when the referenced schedule does
// not exist. Handlers should translate this into an HTTP 404.
var ErrScheduleNotFound = errors.New("schedule not found")

// ErrCategoryNotFound is returned when the schedule has no seat
// category with the requested label.
var ErrCategoryNotFound = errors.New("seat category not found")

// ErrBookingNotFound is returned when no ledger entry exists for the
// given booking id.
var ErrBookingNotFound = errors.New("booking not found")

// ErrNotOwner is returned when the authenticated caller does not own
// the booking they are trying to confirm. Handlers report it the same
// way as a missing booking so ids cannot be probed.
var ErrNotOwner = errors.New("booking belongs to another user")

// ErrBookingNotReserved is returned when a confirmation targets a
// booking that is no longer in the reserved state. Terminal entries
// are never transitioned again.
var ErrBookingNotReserved = errors.New("booking not in reserved state")

// AmountMismatchError aborts a confirmation whose paid amount differs
// from the ledger's expected amount by more than the configured
// tolerance. Nothing is mutated; the caller can retry with corrected
// data.
type AmountMismatchError struct {
	Expected float64
	Paid     float64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount mismatch: expected %.2f, got %.2f", e.Expected, e.Paid)
}

// SeatBookedError aborts a confirmation when one of its seats has
// already been durably booked. This guards the rare case where a lock
// was lost to TTL expiry and a different reservation confirmed first:
// the two confirmations must not both succeed.
type SeatBookedError struct {
	Seat string
}

func (e *SeatBookedError) Error() string {
	return fmt.Sprintf("seat %s already booked", e.Seat)
}
