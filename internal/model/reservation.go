package model

import "time"

// Reservation status values.  A reservation starts out CONFIRMED (the
// provisional lock phase never touches the database) and reaches exactly
// one terminal state: CANCELLED for a user-initiated early checkout or
// COMPLETED when the sweeper expires it.  Terminal states never change.
const (
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
	StatusCompleted = "COMPLETED"
)

// Reservation records one seat-occupancy interval for one user.  A
// reservation is created only by the confirm step of the workflow, after
// the caller's seat lock has been re-validated.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – user who occupies the seat.
//  SeatID    – seat being occupied.
//  StartTime – beginning of the occupancy interval.
//  EndTime   – end of the occupancy interval; always after StartTime.
//  Status    – CONFIRMED, CANCELLED or COMPLETED.
//  CreatedAt – creation timestamp, immutable once set.
type Reservation struct {
	ID        uint64    // reservations.id
	UserID    uint64    // reservations.user_id
	SeatID    uint64    // reservations.seat_id
	StartTime time.Time // reservations.start_time
	EndTime   time.Time // reservations.end_time
	Status    string    // reservations.status
	CreatedAt time.Time // reservations.created_at
}
