package model

import "time"

// Schedule identifies a single showtime of a movie. Each schedule
// owns one or more seat categories which in turn own the physical
// seat layout. The schedule row itself is catalog data; this engine
// only ever mutates the seat state hanging off its categories, and
// only inside the confirmation transaction.
//
// Fields:
//
//	ID         – primary key identifier.
//	MovieID    – movie being shown (catalog reference, not resolved here).
//	StartsAt   – when the show starts; the reservation cutoff is
//	             computed against this timestamp.
//	EndsAt     – when the show ends.
//	Categories – seat categories belonging to this schedule.
//	CreatedAt  – creation timestamp.
//	UpdatedAt  – last update timestamp.
type Schedule struct {
	ID         uint64         // schedules.id
	MovieID    uint64         // schedules.movie_id
	StartsAt   time.Time      // schedules.starts_at
	EndsAt     time.Time      // schedules.ends_at
	Categories []SeatCategory // seat_categories rows for this schedule
	CreatedAt  time.Time      // schedules.created_at
	UpdatedAt  time.Time      // schedules.updated_at
}

// Category returns the seat category with the given label, or nil when
// the schedule has no such category. Labels are unique per schedule.
func (s *Schedule) Category(label string) *SeatCategory {
	for i := range s.Categories {
		if s.Categories[i].Label == label {
			return &s.Categories[i]
		}
	}
	return nil
}

// SeatCategory groups seats of the same type and price within a
// schedule, e.g. "prime" or "classic". The seat layout is fixed at
// creation time from Rows x Cols; seat numbers such as "A1" are only
// unique within their category, never across categories.
//
// Fields:
//
//	ID             – primary key identifier.
//	ScheduleID     – owning schedule.
//	Label          – category type label, unique per schedule.
//	Price          – unit price per seat.
//	Rows           – number of seat rows (A, B, C, ...).
//	Cols           – number of seats per row.
//	TotalSeats     – fixed seat count (Rows * Cols).
//	AvailableSeats – seats not yet booked; recomputed from the seat
//	                 rows inside the confirmation transaction so the
//	                 counter can never drift from the booked flags.
//	Seats          – the generated seat rows.
type SeatCategory struct {
	ID             uint64  // seat_categories.id
	ScheduleID     uint64  // seat_categories.schedule_id
	Label          string  // seat_categories.label
	Price          float64 // seat_categories.price
	Rows           int     // seat_categories.seat_rows
	Cols           int     // seat_categories.seat_cols
	TotalSeats     int     // seat_categories.total_seats
	AvailableSeats int     // seat_categories.available_seats
	Seats          []Seat  // seats rows for this category
}

// Seat returns the seat with the given number, or nil when the
// category holds no such seat.
func (c *SeatCategory) Seat(number string) *Seat {
	for i := range c.Seats {
		if c.Seats[i].SeatNumber == number {
			return &c.Seats[i]
		}
	}
	return nil
}

// Seat is one physical seat within a category. The booked flag is
// monotonic: it moves from false to true exactly once, inside the
// confirmation transaction, and is never reversed by this engine.
//
// Fields:
//
//	ID         – primary key identifier.
//	CategoryID – owning seat category.
//	SeatNumber – label such as "A1"; unique within the category.
//	IsBooked   – whether the seat has been durably sold.
type Seat struct {
	ID         uint64 // seats.id
	CategoryID uint64 // seats.category_id
	SeatNumber string // seats.seat_number
	IsBooked   bool   // seats.is_booked
}
