package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinereserve/booking-engine/internal/lock"
	"github.com/cinereserve/booking-engine/internal/model"
	"github.com/cinereserve/booking-engine/internal/repository"
	"github.com/cinereserve/booking-engine/internal/service"
)

type fakeReserver struct {
	result *service.ReserveResult
	err    error
	last   service.ReserveRequest
}

func (f *fakeReserver) Reserve(ctx context.Context, req service.ReserveRequest) (*service.ReserveResult, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeConfirmer struct {
	result *service.ConfirmResult
	err    error
	last   service.ConfirmRequest
}

func (f *fakeConfirmer) Confirm(ctx context.Context, req service.ConfirmRequest) (*service.ConfirmResult, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeBookingStore struct {
	booking *model.Booking
	err     error
}

func (f *fakeBookingStore) Create(ctx context.Context, b *model.Booking) error { return nil }

func (f *fakeBookingStore) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.booking == nil || f.booking.ID != id {
		return nil, repository.ErrBookingNotFound
	}
	return f.booking, nil
}

func (f *fakeBookingStore) ListStaleReserved(ctx context.Context, before time.Time, limit int) ([]model.Booking, error) {
	return nil, nil
}

func (f *fakeBookingStore) MarkAbandoned(ctx context.Context, id uint64) (bool, error) {
	return false, nil
}

// doRequest runs one handler through Echo with an authenticated user
// already in the context, the way the JWT middleware would leave it.
func doRequest(t *testing.T, method, target, body string, userID interface{}, params map[string]string, h echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != nil {
		c.Set("user_id", userID)
	}
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	require.NoError(t, h(c))
	return rec
}

func TestReserveHandlerCreated(t *testing.T) {
	reserver := &fakeReserver{result: &service.ReserveResult{
		BookingID:      42,
		Seats:          []string{"A1", "A2"},
		ExpectedAmount: 500,
		TTLSeconds:     300,
	}}
	h := NewBookingHandler(reserver, &fakeConfirmer{}, &fakeBookingStore{})

	body := `{"schedule_id":7,"category":"prime","seats":["A1","A2"]}`
	rec := doRequest(t, http.MethodPost, "/v1/reservations", body, float64(9), nil, h.Reserve)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, uint64(9), reserver.last.UserID, "identity must come from the token")

	var resp service.ReserveResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(42), resp.BookingID)
	assert.Equal(t, 300, resp.TTLSeconds)
}

func TestReserveHandlerRejectsMissingIdentity(t *testing.T) {
	h := NewBookingHandler(&fakeReserver{}, &fakeConfirmer{}, &fakeBookingStore{})
	body := `{"schedule_id":7,"category":"prime","seats":["A1"]}`
	rec := doRequest(t, http.MethodPost, "/v1/reservations", body, nil, nil, h.Reserve)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReserveHandlerValidatesBody(t *testing.T) {
	h := NewBookingHandler(&fakeReserver{}, &fakeConfirmer{}, &fakeBookingStore{})
	rec := doRequest(t, http.MethodPost, "/v1/reservations", `{"schedule_id":7,"category":"prime","seats":[]}`, float64(9), nil, h.Reserve)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReserveHandlerStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"schedule missing", repository.ErrScheduleNotFound, http.StatusNotFound},
		{"category missing", repository.ErrCategoryNotFound, http.StatusNotFound},
		{"past cutoff", service.ErrPastCutoff, http.StatusConflict},
		{"unknown seats", &service.UnknownSeatsError{Seats: []string{"Z9"}}, http.StatusBadRequest},
		{"seats booked", &service.SeatsBookedError{Seats: []string{"A1"}}, http.StatusConflict},
		{"seats held", &service.SeatsUnavailableError{Conflicts: []lock.Conflict{{Seat: "A1"}}}, http.StatusConflict},
	}
	body := `{"schedule_id":7,"category":"prime","seats":["A1"]}`
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewBookingHandler(&fakeReserver{err: tc.err}, &fakeConfirmer{}, &fakeBookingStore{})
			rec := doRequest(t, http.MethodPost, "/v1/reservations", body, float64(9), nil, h.Reserve)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestConfirmHandlerOK(t *testing.T) {
	confirmedAt := time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC)
	confirmer := &fakeConfirmer{result: &service.ConfirmResult{Booking: &model.Booking{
		ID:          42,
		UserID:      9,
		Status:      model.StatusConfirmed,
		Seats:       []string{"A1"},
		PaidAmount:  250,
		ConfirmedAt: &confirmedAt,
	}}}
	h := NewBookingHandler(&fakeReserver{}, confirmer, &fakeBookingStore{})

	body := `{"paid_amount":250,"provider":"stripe","transaction_id":"tx-1"}`
	rec := doRequest(t, http.MethodPost, "/v1/bookings/42/confirm", body, float64(9), map[string]string{"id": "42"}, h.Confirm)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(42), confirmer.last.BookingID)
	assert.Equal(t, uint64(9), confirmer.last.UserID)
	assert.Contains(t, rec.Body.String(), `"confirmed"`)
}

func TestConfirmHandlerReplay(t *testing.T) {
	confirmer := &fakeConfirmer{result: &service.ConfirmResult{Replayed: true}}
	h := NewBookingHandler(&fakeReserver{}, confirmer, &fakeBookingStore{})

	body := `{"paid_amount":250,"provider":"stripe","transaction_id":"tx-1"}`
	rec := doRequest(t, http.MethodPost, "/v1/bookings/42/confirm", body, float64(9), map[string]string{"id": "42"}, h.Confirm)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"replayed":true`)
}

func TestConfirmHandlerStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"booking missing", repository.ErrBookingNotFound, http.StatusNotFound},
		{"not owner", repository.ErrNotOwner, http.StatusNotFound},
		{"not reserved", repository.ErrBookingNotReserved, http.StatusConflict},
		{"amount mismatch", &repository.AmountMismatchError{Expected: 500, Paid: 480}, http.StatusUnprocessableEntity},
		{"seat sold", &repository.SeatBookedError{Seat: "A1"}, http.StatusConflict},
	}
	body := `{"paid_amount":480,"provider":"stripe","transaction_id":"tx-1"}`
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewBookingHandler(&fakeReserver{}, &fakeConfirmer{err: tc.err}, &fakeBookingStore{})
			rec := doRequest(t, http.MethodPost, "/v1/bookings/42/confirm", body, float64(9), map[string]string{"id": "42"}, h.Confirm)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestGetBookingHidesForeignBookings(t *testing.T) {
	store := &fakeBookingStore{booking: &model.Booking{ID: 42, UserID: 4, Status: model.StatusReserved}}
	h := NewBookingHandler(&fakeReserver{}, &fakeConfirmer{}, store)

	rec := doRequest(t, http.MethodGet, "/v1/bookings/42", "", float64(9), map[string]string{"id": "42"}, h.GetBooking)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetBookingOwn(t *testing.T) {
	store := &fakeBookingStore{booking: &model.Booking{
		ID:         42,
		UserID:     9,
		ScheduleID: 7,
		Category:   "prime",
		Seats:      []string{"A1"},
		Status:     model.StatusReserved,
		ReservedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}}
	h := NewBookingHandler(&fakeReserver{}, &fakeConfirmer{}, store)

	rec := doRequest(t, http.MethodGet, "/v1/bookings/42", "", float64(9), map[string]string{"id": "42"}, h.GetBooking)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reserved"`)
}
