package service

import (
	"context"
	"time"

	"github.com/cinereserve/booking-engine/internal/lock"
	"github.com/cinereserve/booking-engine/internal/model"
	"github.com/cinereserve/booking-engine/internal/queue"
	"github.com/cinereserve/booking-engine/internal/repository"
)

// Hand-written fakes for the store interfaces. They record calls so
// tests can assert on side effects without a database or broker.

type fakeScheduleStore struct {
	schedule *model.Schedule
	err      error
}

func (f *fakeScheduleStore) GetByID(ctx context.Context, id uint64) (*model.Schedule, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.schedule == nil || f.schedule.ID != id {
		return nil, repository.ErrScheduleNotFound
	}
	return f.schedule, nil
}

type fakeBookingStore struct {
	created    []*model.Booking
	createErr  error
	nextID     uint64
	stale      []model.Booking
	staleErr   error
	abandoned  []uint64
	markResult bool
	markErr    error
}

func (f *fakeBookingStore) Create(ctx context.Context, b *model.Booking) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	b.ID = f.nextID
	f.created = append(f.created, b)
	return nil
}

func (f *fakeBookingStore) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	for _, b := range f.created {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (f *fakeBookingStore) ListStaleReserved(ctx context.Context, before time.Time, limit int) ([]model.Booking, error) {
	if f.staleErr != nil {
		return nil, f.staleErr
	}
	return f.stale, nil
}

func (f *fakeBookingStore) MarkAbandoned(ctx context.Context, id uint64) (bool, error) {
	if f.markErr != nil {
		return false, f.markErr
	}
	if f.markResult {
		f.abandoned = append(f.abandoned, id)
	}
	return f.markResult, nil
}

type lockCall struct {
	scheduleID uint64
	category   string
	seats      []string
	holder     string
}

type fakeLocker struct {
	probeConflicts []lock.Conflict
	probeErr       error
	acquireResult  *lock.AcquireResult
	acquireErr     error
	acquires       []lockCall
	releases       []lockCall
	releaseErr     error
	releasedOwned  []lockCall
	ownedErr       error
}

func (f *fakeLocker) Acquire(ctx context.Context, scheduleID uint64, category string, seats []string, holder string, ttl time.Duration) (*lock.AcquireResult, error) {
	f.acquires = append(f.acquires, lockCall{scheduleID, category, seats, holder})
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	if f.acquireResult != nil {
		return f.acquireResult, nil
	}
	return &lock.AcquireResult{Granted: true}, nil
}

func (f *fakeLocker) Release(ctx context.Context, scheduleID uint64, category string, seats []string) error {
	f.releases = append(f.releases, lockCall{scheduleID, category, seats, ""})
	return f.releaseErr
}

func (f *fakeLocker) ReleaseOwned(ctx context.Context, scheduleID uint64, category string, seats []string, holder string) (int, error) {
	f.releasedOwned = append(f.releasedOwned, lockCall{scheduleID, category, seats, holder})
	if f.ownedErr != nil {
		return 0, f.ownedErr
	}
	return len(seats), nil
}

func (f *fakeLocker) Probe(ctx context.Context, scheduleID uint64, category string, seats []string) ([]lock.Conflict, error) {
	return f.probeConflicts, f.probeErr
}

type fakePublisher struct {
	confirmed []queue.BookingConfirmedEvent
	abandoned []queue.BookingAbandonedEvent
}

func (f *fakePublisher) PublishBookingConfirmed(ctx context.Context, e queue.BookingConfirmedEvent) error {
	f.confirmed = append(f.confirmed, e)
	return nil
}

func (f *fakePublisher) PublishBookingAbandoned(ctx context.Context, e queue.BookingAbandonedEvent) error {
	f.abandoned = append(f.abandoned, e)
	return nil
}

type fakeConfirmer struct {
	booking *model.Booking
	err     error
	calls   []repository.ConfirmParams
}

func (f *fakeConfirmer) Confirm(ctx context.Context, p repository.ConfirmParams) (*model.Booking, error) {
	f.calls = append(f.calls, p)
	if f.err != nil {
		return nil, f.err
	}
	return f.booking, nil
}

// testSchedule builds a schedule with one "prime" category (price 250,
// 2x2 layout) and one "classic" category (price 150, 1x2 layout)
// starting at the given time.
func testSchedule(startsAt time.Time) *model.Schedule {
	return &model.Schedule{
		ID:       7,
		MovieID:  3,
		StartsAt: startsAt,
		EndsAt:   startsAt.Add(2 * time.Hour),
		Categories: []model.SeatCategory{
			{
				ID: 11, ScheduleID: 7, Label: "prime", Price: 250,
				Rows: 2, Cols: 2, TotalSeats: 4, AvailableSeats: 4,
				Seats: []model.Seat{
					{ID: 1, CategoryID: 11, SeatNumber: "A1"},
					{ID: 2, CategoryID: 11, SeatNumber: "A2"},
					{ID: 3, CategoryID: 11, SeatNumber: "B1"},
					{ID: 4, CategoryID: 11, SeatNumber: "B2"},
				},
			},
			{
				ID: 12, ScheduleID: 7, Label: "classic", Price: 150,
				Rows: 1, Cols: 2, TotalSeats: 2, AvailableSeats: 1,
				Seats: []model.Seat{
					{ID: 5, CategoryID: 12, SeatNumber: "A1", IsBooked: true},
					{ID: 6, CategoryID: 12, SeatNumber: "A2"},
				},
			},
		},
	}
}
