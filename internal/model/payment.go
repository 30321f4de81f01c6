package model

import "time"

// Payment records the provider transaction that confirmed a booking.
// There is at most one payment per booking and at most one per
// provider transaction id; both columns carry unique indexes so a
// duplicate confirmation attempt inserts nothing instead of failing.
//
// Fields:
//
//	ID            – primary key identifier.
//	BookingID     – confirmed booking this payment belongs to.
//	UserID        – user who paid.
//	Amount        – amount captured by the provider.
//	Provider      – payment provider name, e.g. "razorpay".
//	TransactionID – provider transaction id; idempotency key at the
//	                storage layer.
//	Status        – provider outcome, e.g. "success".
//	CreatedAt     – creation timestamp.
type Payment struct {
	ID            uint64    // payments.id
	BookingID     uint64    // payments.booking_id
	UserID        uint64    // payments.user_id
	Amount        float64   // payments.amount
	Provider      string    // payments.provider
	TransactionID string    // payments.transaction_id
	Status        string    // payments.status
	CreatedAt     time.Time // payments.created_at
}
