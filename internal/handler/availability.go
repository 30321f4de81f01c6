package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinereserve/booking-engine/internal/repository"
	"github.com/cinereserve/booking-engine/internal/service"
)

// HoldReader exposes the live lock fields of a schedule. Implemented
// by lock.Manager.
type HoldReader interface {
	Holds(ctx context.Context, scheduleID uint64) (map[string]string, error)
}

// AvailabilityHandler serves the merged seat map of a schedule:
// durable sold flags from the ledger overlaid with live holds from the
// lock store. The endpoint is public; it exposes seat states but never
// holder identities.
type AvailabilityHandler struct {
	schedules service.ScheduleStore
	holds     HoldReader
}

// NewAvailabilityHandler constructs an AvailabilityHandler. Both
// dependencies must be non-nil.
func NewAvailabilityHandler(schedules service.ScheduleStore, holds HoldReader) *AvailabilityHandler {
	if schedules == nil || holds == nil {
		panic("nil dependency passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{schedules: schedules, holds: holds}
}

// seatState is one seat in the availability response.
type seatState struct {
	Seat   string `json:"seat"`
	Status string `json:"status"` // free, held or booked
}

// categoryAvailability is one seat category in the availability
// response.
type categoryAvailability struct {
	Label          string      `json:"label"`
	Price          float64     `json:"price"`
	AvailableSeats int         `json:"available_seats"`
	Seats          []seatState `json:"seats"`
}

// GetAvailability handles GET /v1/schedules/:id/availability. A seat
// reports booked when durably sold, held when a live lock field covers
// it, free otherwise. Held counts toward neither sold nor available;
// it is a moment-in-time snapshot that may change before the caller
// reserves.
func (h *AvailabilityHandler) GetAvailability(c echo.Context) error {
	scheduleID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid schedule id"})
	}
	ctx := c.Request().Context()

	schedule, err := h.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	held, err := h.holds.Holds(ctx, scheduleID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lock store unavailable"})
	}

	categories := make([]categoryAvailability, 0, len(schedule.Categories))
	for _, cat := range schedule.Categories {
		seats := make([]seatState, 0, len(cat.Seats))
		for _, seat := range cat.Seats {
			status := "free"
			switch {
			case seat.IsBooked:
				status = "booked"
			default:
				if _, ok := held[cat.Label+":"+seat.SeatNumber]; ok {
					status = "held"
				}
			}
			seats = append(seats, seatState{Seat: seat.SeatNumber, Status: status})
		}
		categories = append(categories, categoryAvailability{
			Label:          cat.Label,
			Price:          cat.Price,
			AvailableSeats: cat.AvailableSeats,
			Seats:          seats,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"schedule_id": schedule.ID,
		"movie_id":    schedule.MovieID,
		"starts_at":   schedule.StartsAt.UTC().Format(time.RFC3339),
		"categories":  categories,
	})
}
