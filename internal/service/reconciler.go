package service

import (
	"context"
	"log"
	"time"

	"github.com/cinereserve/booking-engine/internal/queue"
)

// sweepBatchSize bounds how many stale reservations one pass handles.
// Leftovers are picked up next cycle.
const sweepBatchSize = 100

// Reconciler is the periodic sweep that resolves reservations
// abandoned without payment. It consumes only the booking ledger and
// the seat lock store, and runs on a fixed interval independent of
// request traffic. The interval must never be shorter than the lock
// TTL it reconciles against.
type Reconciler struct {
	bookings BookingStore
	locker   SeatLocker
	events   EventPublisher
	lockTTL  time.Duration
	now      func() time.Time
}

// NewReconciler constructs a Reconciler. The events publisher may be
// nil to disable event publishing.
func NewReconciler(bookings BookingStore, locker SeatLocker, events EventPublisher, lockTTL time.Duration) *Reconciler {
	if bookings == nil || locker == nil {
		panic("nil dependency passed to NewReconciler")
	}
	return &Reconciler{
		bookings: bookings,
		locker:   locker,
		events:   events,
		lockTTL:  lockTTL,
		now:      time.Now,
	}
}

// Sweep processes every reserved ledger entry whose reservation
// window has elapsed. For each entry it probes the lock store:
//
//   - If the entry's own holder token still appears on any of its
//     seats, the hold is released best-effort but the entry is left
//     alone for this pass. A live hold is a weak signal that a
//     confirmation may still be in flight, and the entry will be
//     reconsidered next cycle once the residual fields are gone.
//   - If no seat is held by this entry anymore, the hold has genuinely
//     expired and the entry is transitioned to abandoned. The guarded
//     update refuses to touch entries that left the reserved state in
//     the meantime, so a racing confirmation always wins.
//
// Lock release is never required for correctness; fields expire
// passively by TTL regardless, so release failures are logged and the
// sweep continues.
func (r *Reconciler) Sweep(ctx context.Context) error {
	cutoff := r.now().Add(-r.lockTTL)
	stale, err := r.bookings.ListStaleReserved(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}
	log.Printf("reconciler: sweeping %d stale reservations", len(stale))

	for _, b := range stale {
		conflicts, err := r.locker.Probe(ctx, b.ScheduleID, b.Category, b.Seats)
		if err != nil {
			log.Printf("reconciler: probe failed for booking %d: %v", b.ID, err)
			continue
		}
		stillHeld := false
		for _, c := range conflicts {
			if c.Holder == b.HolderToken {
				stillHeld = true
				break
			}
		}
		if stillHeld {
			if _, err := r.locker.ReleaseOwned(ctx, b.ScheduleID, b.Category, b.Seats, b.HolderToken); err != nil {
				log.Printf("reconciler: failed to release residual lock for booking %d: %v", b.ID, err)
			}
			continue
		}

		changed, err := r.bookings.MarkAbandoned(ctx, b.ID)
		if err != nil {
			log.Printf("reconciler: failed to abandon booking %d: %v", b.ID, err)
			continue
		}
		if !changed {
			// Confirmed between the sweep's read and this write.
			continue
		}
		log.Printf("reconciler: booking %d abandoned after lock expiry", b.ID)
		if r.events != nil {
			event := queue.BookingAbandonedEvent{
				BookingID:  b.ID,
				UserID:     b.UserID,
				ScheduleID: b.ScheduleID,
				Category:   b.Category,
				Seats:      b.Seats,
				ReservedAt: b.ReservedAt.UTC().Format(time.RFC3339),
			}
			if err := r.events.PublishBookingAbandoned(ctx, event); err != nil {
				log.Printf("reconciler: failed to publish event for booking %d: %v", b.ID, err)
			}
		}
	}
	return nil
}
