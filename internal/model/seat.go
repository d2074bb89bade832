package model

import "time"

// Seat describes a single physical seat in the study cafe.  Seats are
// provisioned once at startup and are immutable afterwards: the seat
// number identifies the seat for its whole lifetime and is never
// reused.
//
// Fields:
//  ID         – primary key identifier.
//  SeatNumber – unique positive seat number shown to customers.
//  CreatedAt  – creation timestamp.
type Seat struct {
	ID         uint64    // seats.id
	SeatNumber uint32    // seats.seat_number
	CreatedAt  time.Time // seats.created_at
}

// Seat status values reported by the status board.  OCCUPIED comes from
// the durable store, LOCKED from the ephemeral lock store and AVAILABLE
// is the default.  Durable state always wins over an ephemeral lock so a
// stale unreleased lock can never mask a confirmed reservation.
const (
	SeatAvailable = "AVAILABLE"
	SeatLocked    = "LOCKED"
	SeatOccupied  = "OCCUPIED"
)

// SeatStatus pairs a seat number with its merged durable/ephemeral
// state.  It is the element type of the status board response.
type SeatStatus struct {
	SeatNumber uint32 `json:"seat_number"`
	Status     string `json:"status"`
}
