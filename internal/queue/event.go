// Package queue defines message payloads exchanged over the message
// broker plus the publisher and background consumer for them.
package queue

// ReservationConfirmedEvent is published when a seat claim is converted
// into a durable reservation.  It carries enough information for
// downstream consumers to log or notify without querying the primary
// database.
type ReservationConfirmedEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	UserID        uint64 `json:"user_id"`
	SeatNumber    uint32 `json:"seat_number"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

// ReservationEndedEvent is published when a user checks out of a seat
// before the reservation's natural end time.
type ReservationEndedEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	UserID        uint64 `json:"user_id"`
	SeatNumber    uint32 `json:"seat_number"`
	EndedAt       string `json:"ended_at"`
}
