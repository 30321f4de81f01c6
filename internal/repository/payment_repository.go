package repository

import (
	"context"
	"database/sql"

	"github.com/cinereserve/booking-engine/internal/model"
)

// PaymentRepo persists payment records for confirmed bookings. The
// payments table carries unique indexes on booking_id and
// transaction_id, so inserting the same provider transaction twice is
// absorbed at the storage layer instead of surfacing as an error.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreateTx inserts a payment record within the provided transaction.
// A duplicate transaction id is a no-op, not an error; the return
// value reports whether a new row was actually written. The caller
// must commit or roll back the transaction.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) (bool, error) {
	const q = `INSERT IGNORE INTO payments (booking_id, user_id, amount, provider, transaction_id, status)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, p.BookingID, p.UserID, p.Amount, p.Provider, p.TransactionID, p.Status)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	p.ID = uint64(id)
	return true, nil
}

// GetByTransactionID loads a payment by its provider transaction id.
// Returns sql.ErrNoRows wrapped as nil payment when absent; callers
// use it for read paths only.
func (r *PaymentRepo) GetByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error) {
	const q = `SELECT id, booking_id, user_id, amount, provider, transaction_id, status, created_at
	           FROM payments WHERE transaction_id = ?`
	var p model.Payment
	err := r.db.QueryRowContext(ctx, q, transactionID).Scan(
		&p.ID, &p.BookingID, &p.UserID, &p.Amount, &p.Provider, &p.TransactionID, &p.Status, &p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
