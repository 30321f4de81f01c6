package model

import "time"

// Booking lifecycle states. A booking is created as StatusReserved and
// moves exactly once to either StatusConfirmed (payment applied) or
// StatusAbandoned (reservation window elapsed). Both are terminal.
const (
	StatusReserved  = "reserved"
	StatusConfirmed = "confirmed"
	StatusAbandoned = "abandoned"
)

// Booking is one reservation attempt in the durable ledger. It is
// created by the reservation flow after the seat lock has been
// granted, and finalised either by the confirmation transaction or by
// the expiry reconciler. Confirmed and abandoned entries are retained;
// cleanup of old entries is an external concern.
//
// Fields:
//
//	ID             – primary key identifier.
//	UserID         – user who made the reservation attempt.
//	ScheduleID     – schedule the seats belong to.
//	Category       – seat category label within the schedule.
//	Seats          – exact set of seat numbers reserved, e.g. ["A1","A2"].
//	ExpectedAmount – server-computed price (unit price * seat count).
//	PaidAmount     – amount actually paid; zero until confirmed.
//	HolderToken    – opaque token identifying the seat lock owned by
//	                 this attempt; embedded so the reconciler can tell
//	                 its own residual lock apart from a newer one.
//	Status         – reserved, confirmed or abandoned.
//	ReservedAt     – when the lock was granted and the entry created.
//	ConfirmedAt    – when the booking was confirmed (nil otherwise).
//	CreatedAt      – creation timestamp.
//	UpdatedAt      – last update timestamp.
type Booking struct {
	ID             uint64     // bookings.id
	UserID         uint64     // bookings.user_id
	ScheduleID     uint64     // bookings.schedule_id
	Category       string     // bookings.category
	Seats          []string   // bookings.seats (comma separated in storage)
	ExpectedAmount float64    // bookings.expected_amount
	PaidAmount     float64    // bookings.paid_amount
	HolderToken    string     // bookings.holder_token
	Status         string     // bookings.status
	ReservedAt     time.Time  // bookings.reserved_at
	ConfirmedAt    *time.Time // bookings.confirmed_at (nullable)
	CreatedAt      time.Time  // bookings.created_at
	UpdatedAt      time.Time  // bookings.updated_at
}
