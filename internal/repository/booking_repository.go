package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cinereserve/booking-engine/internal/model"
)

// BookingRepo provides CRUD access to the booking ledger. Every ledger
// entry represents one reservation attempt; status transitions are
// strictly reserved -> confirmed or reserved -> abandoned and both end
// states are terminal. Seat sets are stored comma separated; seat
// numbers are generated row-letter + column-number labels and can
// never contain a comma.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// joinSeats serialises a seat set for storage.
func joinSeats(seats []string) string { return strings.Join(seats, ",") }

// splitSeats deserialises a stored seat set.
func splitSeats(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Create inserts a new ledger entry in the reserved state and
// populates the generated ID on the provided booking.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings
	           (user_id, schedule_id, category, seats, expected_amount, paid_amount, holder_token, status, reserved_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		b.UserID, b.ScheduleID, b.Category, joinSeats(b.Seats),
		b.ExpectedAmount, b.PaidAmount, b.HolderToken, b.Status,
		b.ReservedAt.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// scanBooking reads one bookings row from the given scanner.
func scanBooking(scan func(dest ...interface{}) error) (*model.Booking, error) {
	var b model.Booking
	var seats string
	var confirmedAt sql.NullTime
	err := scan(
		&b.ID, &b.UserID, &b.ScheduleID, &b.Category, &seats,
		&b.ExpectedAmount, &b.PaidAmount, &b.HolderToken, &b.Status,
		&b.ReservedAt, &confirmedAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Seats = splitSeats(seats)
	if confirmedAt.Valid {
		t := confirmedAt.Time
		b.ConfirmedAt = &t
	}
	return &b, nil
}

const bookingColumns = `id, user_id, schedule_id, category, seats, expected_amount, paid_amount,
	holder_token, status, reserved_at, confirmed_at, created_at, updated_at`

// GetByID loads a ledger entry by id. Returns ErrBookingNotFound when
// no row exists.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// GetForUpdateTx loads a ledger entry by id within a transaction,
// locking the row. Confirmation and reconciliation both go through
// this row lock, which serialises a confirmation racing the sweep.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? FOR UPDATE`
	b, err := scanBooking(tx.QueryRowContext(ctx, q, id).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// ConfirmTx transitions a reserved entry to confirmed, recording the
// paid amount and confirmation time. The status guard in the WHERE
// clause makes the transition impossible to repeat.
func (r *BookingRepo) ConfirmTx(ctx context.Context, tx *sql.Tx, id uint64, paid float64, at time.Time) error {
	const q = `UPDATE bookings SET status = ?, paid_amount = ?, confirmed_at = ?
	           WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q,
		model.StatusConfirmed, paid, at.UTC().Format("2006-01-02 15:04:05"), id, model.StatusReserved,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotReserved
	}
	return nil
}

// ListStaleReserved returns reserved entries whose reservation
// timestamp is older than the given cutoff, oldest first. The limit
// bounds one reconciler pass; anything left over is picked up next
// cycle.
func (r *BookingRepo) ListStaleReserved(ctx context.Context, before time.Time, limit int) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings
	      WHERE status = ? AND reserved_at < ? ORDER BY reserved_at LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, model.StatusReserved, before.UTC().Format("2006-01-02 15:04:05"), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// MarkAbandoned transitions a reserved entry to abandoned. It reports
// whether the transition happened: false means the entry had already
// left the reserved state (for example a confirmation committed
// between the sweep's read and this write), in which case the terminal
// state is left untouched.
func (r *BookingRepo) MarkAbandoned(ctx context.Context, id uint64) (bool, error) {
	const q = `UPDATE bookings SET status = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, model.StatusAbandoned, id, model.StatusReserved)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
