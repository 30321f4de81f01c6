// Package queue defines message payloads exchanged over the message
// broker and the publisher that delivers them. Downstream consumers
// (ticket email, QR generation, analytics) get enough information to
// act without querying the primary database; delivering those
// notifications is their concern, not this engine's.
package queue

// BookingConfirmedEvent is published after a confirmation transaction
// commits.
type BookingConfirmedEvent struct {
	BookingID     uint64   `json:"booking_id"`
	UserID        uint64   `json:"user_id"`
	ScheduleID    uint64   `json:"schedule_id"`
	Category      string   `json:"category"`
	Seats         []string `json:"seats"`
	Amount        float64  `json:"amount"`
	Provider      string   `json:"provider"`
	TransactionID string   `json:"transaction_id"`
	ConfirmedAt   string   `json:"confirmed_at"`
}

// BookingAbandonedEvent is published when the expiry reconciler
// transitions a reservation that was never paid to its terminal state.
type BookingAbandonedEvent struct {
	BookingID  uint64   `json:"booking_id"`
	UserID     uint64   `json:"user_id"`
	ScheduleID uint64   `json:"schedule_id"`
	Category   string   `json:"category"`
	Seats      []string `json:"seats"`
	ReservedAt string   `json:"reserved_at"`
}
