package repository // repository defines data access for seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives

	"github.com/iliyamo/study-cafe-reservation/internal/model"
)

// SeatRepo provides methods to work with seats in the database.  Seats
// are written once during provisioning and only read afterwards.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// GetBySeatNumber fetches a seat by its public seat number.  It returns
// ErrSeatNotFound when no such seat exists.
func (r *SeatRepo) GetBySeatNumber(ctx context.Context, seatNumber uint32) (model.Seat, error) {
	const q = `SELECT id, seat_number, created_at FROM seats WHERE seat_number = ? LIMIT 1`
	var s model.Seat
	err := r.db.QueryRowContext(ctx, q, seatNumber).Scan(&s.ID, &s.SeatNumber, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Seat{}, ErrSeatNotFound
	}
	return s, err
}

// ListAll retrieves every seat ordered by seat number.  The status
// board relies on this ordering for a deterministic response.
func (r *SeatRepo) ListAll(ctx context.Context) ([]model.Seat, error) {
	const q = `SELECT id, seat_number, created_at FROM seats ORDER BY seat_number`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.SeatNumber, &s.CreatedAt); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}
