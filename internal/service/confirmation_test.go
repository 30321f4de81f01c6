package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinereserve/booking-engine/internal/model"
	"github.com/cinereserve/booking-engine/internal/repository"
)

var confirmCfg = ConfirmationConfig{
	AmountTolerance: 0.01,
	MarkerTTL:       time.Hour,
}

func confirmedBooking() *model.Booking {
	confirmedAt := time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC)
	return &model.Booking{
		ID:             42,
		UserID:         9,
		ScheduleID:     7,
		Category:       "prime",
		Seats:          []string{"A1", "A2"},
		ExpectedAmount: 500,
		PaidAmount:     500,
		HolderToken:    "9:1700000000000:attempt",
		Status:         model.StatusConfirmed,
		ConfirmedAt:    &confirmedAt,
	}
}

func TestConfirmHappyPath(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("booking:confirm:42").RedisNil()
	mock.ExpectSet("booking:confirm:42", "done", time.Hour).SetVal("OK")

	store := &fakeConfirmer{booking: confirmedBooking()}
	locker := &fakeLocker{}
	events := &fakePublisher{}
	svc := NewConfirmationService(store, locker, rdb, events, confirmCfg)

	res, err := svc.Confirm(context.Background(), ConfirmRequest{
		BookingID: 42, UserID: 9, PaidAmount: 500, Provider: "stripe", TransactionID: "tx-1",
	})
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	require.NotNil(t, res.Booking)
	assert.Equal(t, model.StatusConfirmed, res.Booking.Status)

	require.Len(t, store.calls, 1)
	assert.Equal(t, 0.01, store.calls[0].Tolerance)
	assert.Equal(t, "tx-1", store.calls[0].TransactionID)

	require.Len(t, locker.releases, 1)
	assert.Equal(t, []string{"A1", "A2"}, locker.releases[0].seats)

	require.Len(t, events.confirmed, 1)
	assert.Equal(t, uint64(42), events.confirmed[0].BookingID)
	assert.Equal(t, "2026-03-14T12:30:00Z", events.confirmed[0].ConfirmedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmReplayShortCircuits(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("booking:confirm:42").SetVal("done")

	store := &fakeConfirmer{booking: confirmedBooking()}
	locker := &fakeLocker{}
	svc := NewConfirmationService(store, locker, rdb, nil, confirmCfg)

	res, err := svc.Confirm(context.Background(), ConfirmRequest{BookingID: 42, UserID: 9})
	require.NoError(t, err)
	assert.True(t, res.Replayed)
	assert.Nil(t, res.Booking)
	assert.Empty(t, store.calls, "the durable transaction must not run on a replay")
	assert.Empty(t, locker.releases)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmProceedsWhenMarkerCheckFails(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("booking:confirm:42").SetErr(errors.New("connection refused"))
	mock.ExpectSet("booking:confirm:42", "done", time.Hour).SetVal("OK")

	store := &fakeConfirmer{booking: confirmedBooking()}
	svc := NewConfirmationService(store, &fakeLocker{}, rdb, nil, confirmCfg)

	res, err := svc.Confirm(context.Background(), ConfirmRequest{
		BookingID: 42, UserID: 9, PaidAmount: 500, Provider: "stripe", TransactionID: "tx-1",
	})
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	require.Len(t, store.calls, 1, "marker unavailability must not block confirmation")
}

func TestConfirmTransactionErrorHasNoSideEffects(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("booking:confirm:42").RedisNil()

	store := &fakeConfirmer{err: repository.ErrBookingNotReserved}
	locker := &fakeLocker{}
	events := &fakePublisher{}
	svc := NewConfirmationService(store, locker, rdb, events, confirmCfg)

	_, err := svc.Confirm(context.Background(), ConfirmRequest{BookingID: 42, UserID: 9})
	assert.ErrorIs(t, err, repository.ErrBookingNotReserved)
	assert.Empty(t, locker.releases, "no lock release on a failed transaction")
	assert.Empty(t, events.confirmed)
	assert.NoError(t, mock.ExpectationsWereMet(), "no marker is written on failure")
}

func TestConfirmAmountMismatchPropagates(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("booking:confirm:42").RedisNil()

	store := &fakeConfirmer{err: &repository.AmountMismatchError{Expected: 500, Paid: 480}}
	svc := NewConfirmationService(store, &fakeLocker{}, rdb, nil, confirmCfg)

	_, err := svc.Confirm(context.Background(), ConfirmRequest{BookingID: 42, UserID: 9, PaidAmount: 480})
	var mismatch *repository.AmountMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 500.0, mismatch.Expected)
	assert.Equal(t, 480.0, mismatch.Paid)
}

func TestConfirmSucceedsWhenMarkerSetFails(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("booking:confirm:42").RedisNil()
	mock.ExpectSet("booking:confirm:42", "done", time.Hour).SetErr(errors.New("connection reset"))

	store := &fakeConfirmer{booking: confirmedBooking()}
	locker := &fakeLocker{}
	svc := NewConfirmationService(store, locker, rdb, nil, confirmCfg)

	res, err := svc.Confirm(context.Background(), ConfirmRequest{
		BookingID: 42, UserID: 9, PaidAmount: 500, Provider: "stripe", TransactionID: "tx-1",
	})
	require.NoError(t, err, "the commit already happened; marker loss is tolerable")
	require.NotNil(t, res.Booking)
	require.Len(t, locker.releases, 1)
}
