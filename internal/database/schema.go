package database

import (
	"context"
	"database/sql"
	"log"
)

// schemaStatements creates the tables this service owns.  The
// reservations table carries two nullable generated-on-write columns,
// active_seat_id and active_user_id, each under a unique index: they
// hold the seat and user only while a reservation is CONFIRMED and are
// cleared on cancel/complete.  MySQL unique indexes permit any number
// of NULLs, so the pair enforces "at most one active reservation per
// seat and per user" at the storage layer, independent of application
// checks.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		email         VARCHAR(255)    NOT NULL,
		password_hash VARCHAR(255)    NOT NULL,
		role          VARCHAR(32)     NOT NULL DEFAULT 'CUSTOMER',
		created_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS seats (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		seat_number INT UNSIGNED    NOT NULL,
		created_at  DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_seats_number (seat_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reservations (
		id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id        BIGINT UNSIGNED NOT NULL,
		seat_id        BIGINT UNSIGNED NOT NULL,
		start_time     DATETIME        NOT NULL,
		end_time       DATETIME        NOT NULL,
		status         ENUM('CONFIRMED','CANCELLED','COMPLETED') NOT NULL,
		active_seat_id BIGINT UNSIGNED NULL,
		active_user_id BIGINT UNSIGNED NULL,
		created_at     DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_reservations_active_seat (active_seat_id),
		UNIQUE KEY uq_reservations_active_user (active_user_id),
		KEY idx_user_status_end (user_id, status, end_time),
		KEY idx_status_end (status, end_time),
		CONSTRAINT fk_reservations_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_reservations_seat FOREIGN KEY (seat_id) REFERENCES seats (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the service's tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// EnsureSeats provisions seats 1..count when the seats table is empty.
// Existing seats are never touched; the seat inventory is immutable
// after first provisioning.
func EnsureSeats(ctx context.Context, db *sql.DB, count int) error {
	var existing int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seats`).Scan(&existing); err != nil {
		return err
	}
	if existing > 0 {
		log.Printf("database: %d seats already provisioned", existing)
		return nil
	}
	query := `INSERT INTO seats (seat_number) VALUES `
	args := make([]interface{}, 0, count)
	for i := 1; i <= count; i++ {
		if i > 1 {
			query += ","
		}
		query += "(?)"
		args = append(args, i)
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	log.Printf("database: provisioned %d seats", count)
	return nil
}
