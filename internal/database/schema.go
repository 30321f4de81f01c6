package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements creates the tables this engine depends on. The
// statements are idempotent so the service can run them on every
// start. Uniqueness constraints are part of the correctness story, not
// just hygiene: payments.transaction_id absorbs duplicate confirmation
// attempts and payments.booking_id enforces one payment per booking.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS schedules (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		movie_id   BIGINT UNSIGNED NOT NULL,
		starts_at  DATETIME        NOT NULL,
		ends_at    DATETIME        NOT NULL,
		created_at TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_schedules_movie_starts (movie_id, starts_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS seat_categories (
		id              BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		schedule_id     BIGINT UNSIGNED NOT NULL,
		label           VARCHAR(32)     NOT NULL,
		price           DECIMAL(10,2)   NOT NULL,
		seat_rows       INT             NOT NULL,
		seat_cols       INT             NOT NULL,
		total_seats     INT             NOT NULL,
		available_seats INT             NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_category_per_schedule (schedule_id, label),
		CONSTRAINT fk_categories_schedule FOREIGN KEY (schedule_id) REFERENCES schedules (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS seats (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		category_id BIGINT UNSIGNED NOT NULL,
		seat_number VARCHAR(8)      NOT NULL,
		is_booked   BOOLEAN         NOT NULL DEFAULT FALSE,
		PRIMARY KEY (id),
		UNIQUE KEY uq_seat_per_category (category_id, seat_number),
		CONSTRAINT fk_seats_category FOREIGN KEY (category_id) REFERENCES seat_categories (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id              BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id         BIGINT UNSIGNED NOT NULL,
		schedule_id     BIGINT UNSIGNED NOT NULL,
		category        VARCHAR(32)     NOT NULL,
		seats           VARCHAR(512)    NOT NULL,
		expected_amount DECIMAL(10,2)   NOT NULL,
		paid_amount     DECIMAL(10,2)   NOT NULL DEFAULT 0,
		holder_token    VARCHAR(128)    NOT NULL,
		status          ENUM('reserved','confirmed','abandoned') NOT NULL DEFAULT 'reserved',
		reserved_at     DATETIME        NOT NULL,
		confirmed_at    DATETIME        NULL,
		created_at      TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at      TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_bookings_user (user_id),
		KEY idx_bookings_schedule_status (schedule_id, status),
		KEY idx_bookings_status_reserved_at (status, reserved_at),
		CONSTRAINT fk_bookings_schedule FOREIGN KEY (schedule_id) REFERENCES schedules (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS payments (
		id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		booking_id     BIGINT UNSIGNED NOT NULL,
		user_id        BIGINT UNSIGNED NOT NULL,
		amount         DECIMAL(10,2)   NOT NULL,
		provider       VARCHAR(32)     NOT NULL,
		transaction_id VARCHAR(128)    NOT NULL,
		status         VARCHAR(16)     NOT NULL,
		created_at     TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_payment_per_booking (booking_id),
		UNIQUE KEY uq_payment_transaction (transaction_id),
		CONSTRAINT fk_payments_booking FOREIGN KEY (booking_id) REFERENCES bookings (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates any missing tables. It is safe to call on every
// startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
