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

// Reserver grants seat holds. Implemented by service.ReservationService.
type Reserver interface {
	Reserve(ctx context.Context, req service.ReserveRequest) (*service.ReserveResult, error)
}

// Confirmer settles reserved bookings. Implemented by
// service.ConfirmationService.
type Confirmer interface {
	Confirm(ctx context.Context, req service.ConfirmRequest) (*service.ConfirmResult, error)
}

// BookingHandler exposes the reservation and confirmation flows over
// HTTP. All routes require JWT authentication; the user identity comes
// from the token, never from the request body.
type BookingHandler struct {
	reservations  Reserver
	confirmations Confirmer
	bookings      service.BookingStore
}

// NewBookingHandler constructs a BookingHandler. All dependencies must
// be non-nil.
func NewBookingHandler(reservations Reserver, confirmations Confirmer, bookings service.BookingStore) *BookingHandler {
	if reservations == nil || confirmations == nil || bookings == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{reservations: reservations, confirmations: confirmations, bookings: bookings}
}

// reserveBody is the request body for POST /v1/reservations.
type reserveBody struct {
	ScheduleID uint64   `json:"schedule_id" validate:"required"`
	Category   string   `json:"category" validate:"required"`
	Seats      []string `json:"seats" validate:"required,min=1,max=10,dive,required"`
}

// confirmBody is the request body for POST /v1/bookings/:id/confirm.
// The paid amount is what the payment provider reports, not what the
// client believes the seats cost.
type confirmBody struct {
	PaidAmount    float64 `json:"paid_amount" validate:"required,gt=0"`
	Provider      string  `json:"provider" validate:"required"`
	TransactionID string  `json:"transaction_id" validate:"required"`
}

// Reserve handles POST /v1/reservations. On success it returns 201
// with the booking ID, the granted seats, the amount the caller is
// expected to pay and the hold's TTL in seconds.
func (h *BookingHandler) Reserve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body reserveBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	res, err := h.reservations.Reserve(c.Request().Context(), service.ReserveRequest{
		UserID:     userID,
		ScheduleID: body.ScheduleID,
		Category:   body.Category,
		Seats:      body.Seats,
	})
	if err != nil {
		return reservationError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Confirm handles POST /v1/bookings/:id/confirm. A repeated call for
// an already settled booking returns the same 200 with replayed=true
// instead of an error; the provider may deliver the same notification
// more than once.
func (h *BookingHandler) Confirm(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var body confirmBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	res, err := h.confirmations.Confirm(c.Request().Context(), service.ConfirmRequest{
		BookingID:     bookingID,
		UserID:        userID,
		PaidAmount:    body.PaidAmount,
		Provider:      body.Provider,
		TransactionID: body.TransactionID,
	})
	if err != nil {
		return confirmationError(c, err)
	}
	if res.Replayed {
		return c.JSON(http.StatusOK, echo.Map{"booking_id": bookingID, "replayed": true})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":   res.Booking.ID,
		"status":       res.Booking.Status,
		"seats":        res.Booking.Seats,
		"paid_amount":  res.Booking.PaidAmount,
		"confirmed_at": formatTimePtr(res.Booking.ConfirmedAt),
	})
}

// GetBooking handles GET /v1/bookings/:id. Users can only read their
// own bookings; anything else is reported as not found rather than
// forbidden so booking IDs cannot be probed.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	booking, err := h.bookings.GetByID(c.Request().Context(), bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if booking.UserID != userID {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":      booking.ID,
		"schedule_id":     booking.ScheduleID,
		"category":        booking.Category,
		"seats":           booking.Seats,
		"status":          booking.Status,
		"expected_amount": booking.ExpectedAmount,
		"paid_amount":     booking.PaidAmount,
		"reserved_at":     booking.ReservedAt.UTC().Format(time.RFC3339),
		"confirmed_at":    formatTimePtr(booking.ConfirmedAt),
	})
}

// reservationError maps reservation failures onto HTTP responses. Each
// rejection kind gets a distinct status so clients can react without
// parsing messages.
func reservationError(c echo.Context, err error) error {
	var unknown *service.UnknownSeatsError
	var booked *service.SeatsBookedError
	var unavailable *service.SeatsUnavailableError
	switch {
	case errors.Is(err, repository.ErrScheduleNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not found"})
	case errors.Is(err, repository.ErrCategoryNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
	case errors.Is(err, service.ErrPastCutoff):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking closed for this show"})
	case errors.Is(err, service.ErrNoSeats):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no seats requested"})
	case errors.As(err, &unknown):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown seats", "seats": unknown.Seats})
	case errors.As(err, &booked):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seats already booked", "seats": booked.Seats})
	case errors.As(err, &unavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seats currently held", "seats": unavailable.ConflictSeats()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation failed"})
}

// confirmationError maps confirmation failures onto HTTP responses.
func confirmationError(c echo.Context, err error) error {
	var mismatch *repository.AmountMismatchError
	var seatTaken *repository.SeatBookedError
	switch {
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrNotOwner):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrBookingNotReserved):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not in a confirmable state"})
	case errors.As(err, &mismatch):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":    "paid amount does not match",
			"expected": mismatch.Expected,
			"paid":     mismatch.Paid,
		})
	case errors.As(err, &seatTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat was sold to another booking", "seat": seatTaken.Seat})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirmation failed"})
}

// formatTimePtr renders an optional timestamp as RFC3339 or empty.
func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
