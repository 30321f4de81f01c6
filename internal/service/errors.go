package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cinereserve/booking-engine/internal/lock"
)

// ErrPastCutoff is returned when a reservation arrives after the
// configured cutoff window before showtime. The cutoff is a hard
// deadline; seat availability does not matter once it has passed.
var ErrPastCutoff = errors.New("booking closed for this show")

// ErrNoSeats is returned when a reservation request contains no usable
// seat identifiers after deduplication.
var ErrNoSeats = errors.New("no seats requested")

// UnknownSeatsError rejects a reservation naming seats that do not
// exist in the category's generated layout.
type UnknownSeatsError struct {
	Seats []string
}

func (e *UnknownSeatsError) Error() string {
	return fmt.Sprintf("unknown seats: %s", strings.Join(e.Seats, ", "))
}

// SeatsBookedError rejects a reservation naming seats that are already
// durably sold. Unlike a lock conflict these seats will never free up,
// so the caller should pick different seats rather than retry.
type SeatsBookedError struct {
	Seats []string
}

func (e *SeatsBookedError) Error() string {
	return fmt.Sprintf("seats already booked: %s", strings.Join(e.Seats, ", "))
}

// SeatsUnavailableError rejects a reservation whose seats are
// currently locked by other attempts. Conflicts name the specific
// seats that were lost so the caller can report them precisely.
type SeatsUnavailableError struct {
	Conflicts []lock.Conflict
}

func (e *SeatsUnavailableError) Error() string {
	seats := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		seats[i] = c.Seat
	}
	return fmt.Sprintf("seats already locked: %s", strings.Join(seats, ", "))
}

// ConflictSeats returns just the seat numbers from the conflicts.
func (e *SeatsUnavailableError) ConflictSeats() []string {
	seats := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		seats[i] = c.Seat
	}
	return seats
}
