package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cinereserve/booking-engine/internal/model"
	"github.com/cinereserve/booking-engine/internal/utils"
)

// ScheduleRepo provides access to the schedule catalog and the
// seat-state mutations performed during confirmation. All timestamp
// fields are stored in UTC. While serving traffic the engine only
// reads catalog rows and flips seat state inside the confirmation
// transaction; catalog creation is a provisioning concern.
type ScheduleRepo struct {
	db *sql.DB
}

// NewScheduleRepo returns a new ScheduleRepo bound to the provided database.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

// DB exposes the underlying database handle so callers can begin
// transactions that span multiple repositories.
func (r *ScheduleRepo) DB() *sql.DB { return r.db }

// GetByID loads a schedule together with its seat categories and full
// seat layout. Returns ErrScheduleNotFound when no row exists.
func (r *ScheduleRepo) GetByID(ctx context.Context, id uint64) (*model.Schedule, error) {
	const q = `SELECT id, movie_id, starts_at, ends_at, created_at, updated_at
	           FROM schedules WHERE id = ?`
	var s model.Schedule
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.MovieID, &s.StartsAt, &s.EndsAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, err
	}
	cats, err := r.categoriesByScheduleID(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Categories = cats
	return &s, nil
}

// categoriesByScheduleID loads all seat categories of a schedule along
// with their seats, ordered so that generated layouts come back in a
// stable row/column order.
func (r *ScheduleRepo) categoriesByScheduleID(ctx context.Context, scheduleID uint64) ([]model.SeatCategory, error) {
	const q = `SELECT id, schedule_id, label, price, seat_rows, seat_cols, total_seats, available_seats
	           FROM seat_categories WHERE schedule_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cats []model.SeatCategory
	for rows.Next() {
		var c model.SeatCategory
		if err := rows.Scan(&c.ID, &c.ScheduleID, &c.Label, &c.Price, &c.Rows, &c.Cols, &c.TotalSeats, &c.AvailableSeats); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range cats {
		seats, err := r.seatsByCategoryID(ctx, cats[i].ID)
		if err != nil {
			return nil, err
		}
		cats[i].Seats = seats
	}
	return cats, nil
}

// seatsByCategoryID loads every seat row of one category.
func (r *ScheduleRepo) seatsByCategoryID(ctx context.Context, categoryID uint64) ([]model.Seat, error) {
	const q = `SELECT id, category_id, seat_number, is_booked FROM seats WHERE category_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.SeatNumber, &s.IsBooked); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// CreateSchedule inserts a schedule with its categories and generates
// each category's seat layout from its Rows x Cols dimensions. Catalog
// writes happen only through seeding or provisioning; the engine never
// creates catalog rows while serving traffic. The inserted IDs and the
// computed seat counts are written back into the passed structs.
func (r *ScheduleRepo) CreateSchedule(ctx context.Context, s *model.Schedule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO schedules (movie_id, starts_at, ends_at) VALUES (?, ?, ?)`,
		s.MovieID, s.StartsAt.UTC(), s.EndsAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	scheduleID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(scheduleID)

	for i := range s.Categories {
		cat := &s.Categories[i]
		numbers, err := utils.GenerateSeatNumbers(cat.Rows, cat.Cols)
		if err != nil {
			return fmt.Errorf("category %s: %w", cat.Label, err)
		}
		cat.ScheduleID = s.ID
		cat.TotalSeats = len(numbers)
		cat.AvailableSeats = len(numbers)

		res, err := tx.ExecContext(ctx,
			`INSERT INTO seat_categories (schedule_id, label, price, seat_rows, seat_cols, total_seats, available_seats)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			cat.ScheduleID, cat.Label, cat.Price, cat.Rows, cat.Cols, cat.TotalSeats, cat.AvailableSeats,
		)
		if err != nil {
			return fmt.Errorf("insert category %s: %w", cat.Label, err)
		}
		categoryID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		cat.ID = uint64(categoryID)

		values := strings.TrimSuffix(strings.Repeat("(?, ?),", len(numbers)), ",")
		args := make([]interface{}, 0, len(numbers)*2)
		for _, number := range numbers {
			args = append(args, cat.ID, number)
		}
		q := `INSERT INTO seats (category_id, seat_number) VALUES ` + values
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert seats for %s: %w", cat.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule tx: %w", err)
	}
	committed = true
	return nil
}

// CategoryForUpdateTx loads one seat category by schedule and label
// within a transaction, locking the row so concurrent confirmations of
// the same category serialize. Returns ErrCategoryNotFound when the
// schedule has no category with that label.
func (r *ScheduleRepo) CategoryForUpdateTx(ctx context.Context, tx *sql.Tx, scheduleID uint64, label string) (*model.SeatCategory, error) {
	const q = `SELECT id, schedule_id, label, price, seat_rows, seat_cols, total_seats, available_seats
	           FROM seat_categories WHERE schedule_id = ? AND label = ? FOR UPDATE`
	var c model.SeatCategory
	err := tx.QueryRowContext(ctx, q, scheduleID, label).Scan(
		&c.ID, &c.ScheduleID, &c.Label, &c.Price, &c.Rows, &c.Cols, &c.TotalSeats, &c.AvailableSeats,
	)
	if err == sql.ErrNoRows {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SeatsForUpdateTx loads the named seats of a category within a
// transaction, locking the rows. The caller is responsible for
// verifying that every requested seat number came back.
func (r *ScheduleRepo) SeatsForUpdateTx(ctx context.Context, tx *sql.Tx, categoryID uint64, numbers []string) ([]model.Seat, error) {
	if len(numbers) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(numbers)), ",")
	q := `SELECT id, category_id, seat_number, is_booked FROM seats
	      WHERE category_id = ? AND seat_number IN (` + placeholders + `) FOR UPDATE`
	args := make([]interface{}, 0, len(numbers)+1)
	args = append(args, categoryID)
	for _, n := range numbers {
		args = append(args, n)
	}
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.SeatNumber, &s.IsBooked); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// MarkSeatsBookedTx flips the booked flag for the given seat rows.
// The flag is monotonic; this is the only code path in the engine that
// writes it, and it runs exclusively inside the confirmation
// transaction.
func (r *ScheduleRepo) MarkSeatsBookedTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(seatIDs)), ",")
	q := `UPDATE seats SET is_booked = TRUE WHERE id IN (` + placeholders + `)`
	args := make([]interface{}, len(seatIDs))
	for i, id := range seatIDs {
		args[i] = id
	}
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

// RecountAvailableTx recomputes a category's available-seat counter
// from its seat rows inside the same transaction that flipped the
// booked flags. Recomputing instead of decrementing keeps the counter
// from drifting under partial failures.
func (r *ScheduleRepo) RecountAvailableTx(ctx context.Context, tx *sql.Tx, categoryID uint64) error {
	const q = `UPDATE seat_categories
	           SET available_seats = total_seats - (SELECT COUNT(*) FROM seats WHERE category_id = ? AND is_booked = TRUE)
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, categoryID, categoryID)
	return err
}
