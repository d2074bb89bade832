package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/study-cafe-reservation/internal/model"
)

// ReservationRepo provides CRUD operations for seat reservations.  All
// timestamp fields are stored and compared in UTC.
//
// The table carries two nullable helper columns, active_seat_id and
// active_user_id, each under a unique index.  They hold the seat and
// user of a CONFIRMED reservation and are cleared when the reservation
// reaches a terminal state.  This turns "at most one active reservation
// per seat / per user" into a constraint the database itself enforces,
// closing the race left open by application-level existence checks.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning several repositories.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// ActiveReservation is a reservation joined with the seat number of the
// seat it occupies, as needed by checkout and current-seat lookups.
type ActiveReservation struct {
	model.Reservation
	SeatNumber uint32
}

// ExistsActiveForUser reports whether the user has a CONFIRMED
// reservation whose end time lies after now.  It backs the
// one-active-seat-per-user rule checked before a claim is even
// attempted.
func (r *ReservationRepo) ExistsActiveForUser(ctx context.Context, userID uint64, now time.Time) (bool, error) {
	const q = `SELECT EXISTS(
	               SELECT 1 FROM reservations
	               WHERE user_id = ? AND status = 'CONFIRMED' AND end_time > ?)`
	var exists bool
	err := r.db.QueryRowContext(ctx, q, userID, now.UTC()).Scan(&exists)
	return exists, err
}

// ExistsActiveForUserTx is ExistsActiveForUser inside a transaction,
// used by the confirm step's mandatory durable double check.
func (r *ReservationRepo) ExistsActiveForUserTx(ctx context.Context, tx *sql.Tx, userID uint64, now time.Time) (bool, error) {
	const q = `SELECT EXISTS(
	               SELECT 1 FROM reservations
	               WHERE user_id = ? AND status = 'CONFIRMED' AND end_time > ?)`
	var exists bool
	err := tx.QueryRowContext(ctx, q, userID, now.UTC()).Scan(&exists)
	return exists, err
}

// ExistsActiveForSeatTx reports whether the seat has a CONFIRMED
// reservation with a future end time, inside a transaction.
func (r *ReservationRepo) ExistsActiveForSeatTx(ctx context.Context, tx *sql.Tx, seatID uint64, now time.Time) (bool, error) {
	const q = `SELECT EXISTS(
	               SELECT 1 FROM reservations
	               WHERE seat_id = ? AND status = 'CONFIRMED' AND end_time > ?)`
	var exists bool
	err := tx.QueryRowContext(ctx, q, seatID, now.UTC()).Scan(&exists)
	return exists, err
}

// CreateTx inserts a CONFIRMED reservation within the given transaction
// and populates the generated ID.  The active-key columns are set from
// the seat and user so the unique indexes arbitrate concurrent
// confirms: a duplicate-key failure maps to ErrActiveConflict and the
// caller must roll the transaction back.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations
	               (user_id, seat_id, start_time, end_time, status, active_seat_id, active_user_id)
	           VALUES (?, ?, ?, ?, 'CONFIRMED', ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		res.UserID, res.SeatID, res.StartTime.UTC(), res.EndTime.UTC(), res.SeatID, res.UserID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrActiveConflict
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	res.Status = model.StatusConfirmed
	return nil
}

// CreateConfirmed runs the whole durable side of the confirm step as
// one transaction: re-check the seat-occupied and user-occupied
// invariants against the database, then insert the CONFIRMED row for
// [start, end).  The re-check is mandatory even though the caller holds
// the seat lock, because the lock store may have restarted and lost the
// lock; the durable store is the final arbiter.  Any conflict, whether
// caught by the pre-checks or by the unique active-key indexes at
// insert time, rolls the transaction back and returns ErrActiveConflict
// so no partial row ever survives a failed confirm.
func (r *ReservationRepo) CreateConfirmed(ctx context.Context, userID, seatID uint64, start, end time.Time) (model.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Reservation{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	seatBusy, err := r.ExistsActiveForSeatTx(ctx, tx, seatID, start)
	if err != nil {
		return model.Reservation{}, err
	}
	if seatBusy {
		return model.Reservation{}, ErrActiveConflict
	}
	userBusy, err := r.ExistsActiveForUserTx(ctx, tx, userID, start)
	if err != nil {
		return model.Reservation{}, err
	}
	if userBusy {
		return model.Reservation{}, ErrActiveConflict
	}
	res := model.Reservation{
		UserID:    userID,
		SeatID:    seatID,
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
	}
	if err := r.CreateTx(ctx, tx, &res); err != nil {
		return model.Reservation{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Reservation{}, err
	}
	committed = true
	return res, nil
}

// ActiveByUser returns the user's CONFIRMED reservation with a future
// end time, joined with its seat number.  sql.ErrNoRows is returned
// when the user is not occupying any seat.
func (r *ReservationRepo) ActiveByUser(ctx context.Context, userID uint64, now time.Time) (ActiveReservation, error) {
	const q = `SELECT r.id, r.user_id, r.seat_id, r.start_time, r.end_time, r.status, r.created_at, s.seat_number
	           FROM reservations r
	           JOIN seats s ON s.id = r.seat_id
	           WHERE r.user_id = ? AND r.status = 'CONFIRMED' AND r.end_time > ?
	           LIMIT 1`
	var a ActiveReservation
	err := r.db.QueryRowContext(ctx, q, userID, now.UTC()).Scan(
		&a.ID, &a.UserID, &a.SeatID, &a.StartTime, &a.EndTime, &a.Status, &a.CreatedAt, &a.SeatNumber)
	return a, err
}

// OccupiedSeatNumbers returns the seat numbers of every seat whose
// CONFIRMED reservation interval [start_time, end_time) contains now.
// The aggregator projects this set over the seat list to mark seats
// OCCUPIED.
func (r *ReservationRepo) OccupiedSeatNumbers(ctx context.Context, now time.Time) (map[uint32]struct{}, error) {
	const q = `SELECT s.seat_number
	           FROM reservations r
	           JOIN seats s ON s.id = r.seat_id
	           WHERE r.status = 'CONFIRMED' AND r.start_time <= ? AND r.end_time > ?`
	nowUTC := now.UTC()
	rows, err := r.db.QueryContext(ctx, q, nowUTC, nowUTC)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	occupied := make(map[uint32]struct{})
	for rows.Next() {
		var n uint32
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		occupied[n] = struct{}{}
	}
	return occupied, rows.Err()
}

// Cancel transitions a CONFIRMED reservation to CANCELLED and clears
// its active-key columns so the seat and user become reservable again.
// It reports whether a row was actually updated; cancelling an already
// terminal reservation is a no-op.
func (r *ReservationRepo) Cancel(ctx context.Context, reservationID uint64) (bool, error) {
	const q = `UPDATE reservations
	           SET status = 'CANCELLED', active_seat_id = NULL, active_user_id = NULL
	           WHERE id = ? AND status = 'CONFIRMED'`
	result, err := r.db.ExecContext(ctx, q, reservationID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// CompleteExpired bulk-transitions every CONFIRMED reservation whose
// end time has passed to COMPLETED in one atomic update and returns the
// number of rows affected.  Running it again immediately affects zero
// rows, which makes the sweep idempotent.
func (r *ReservationRepo) CompleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE reservations
	           SET status = 'COMPLETED', active_seat_id = NULL, active_user_id = NULL
	           WHERE status = 'CONFIRMED' AND end_time <= ?`
	result, err := r.db.ExecContext(ctx, q, now.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
