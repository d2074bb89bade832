package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/study-cafe-reservation/internal/model"
	"github.com/iliyamo/study-cafe-reservation/internal/queue"
	"github.com/iliyamo/study-cafe-reservation/internal/repository"
)

// SeatLocker is the claim protocol the workflow drives.  It is
// satisfied by lock.SeatLock; tests substitute in-memory fakes.
type SeatLocker interface {
	Claim(ctx context.Context, seatNumber uint32, userID uint64) bool
	Extend(ctx context.Context, seatNumber uint32, userID uint64) bool
	Release(ctx context.Context, seatNumber uint32)
	OwnersOf(ctx context.Context, seatNumbers []uint32) map[uint32]string
}

// UserStore is the subset of the user repository the workflow needs.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// SeatStore is the subset of the seat repository the workflow needs.
type SeatStore interface {
	GetBySeatNumber(ctx context.Context, seatNumber uint32) (model.Seat, error)
	ListAll(ctx context.Context) ([]model.Seat, error)
}

// ReservationStore is the durable-store surface of the workflow.
type ReservationStore interface {
	ExistsActiveForUser(ctx context.Context, userID uint64, now time.Time) (bool, error)
	CreateConfirmed(ctx context.Context, userID, seatID uint64, start, end time.Time) (model.Reservation, error)
	ActiveByUser(ctx context.Context, userID uint64, now time.Time) (repository.ActiveReservation, error)
	OccupiedSeatNumbers(ctx context.Context, now time.Time) (map[uint32]struct{}, error)
	Cancel(ctx context.Context, reservationID uint64) (bool, error)
}

// Events receives reservation lifecycle notifications.  Publishing is
// best effort: implementations log failures and never block or fail
// the request that triggered them.
type Events interface {
	ReservationConfirmed(ctx context.Context, ev queue.ReservationConfirmedEvent)
	ReservationEnded(ctx context.Context, ev queue.ReservationEndedEvent)
}

// ReservationService implements the claim → confirm → end-use workflow
// and the seat status board.  Per claim attempt the state machine is
// UNCLAIMED → PROVISIONAL (seat lock held) → CONFIRMED (durable row) →
// COMPLETED or CANCELLED.  Everything between the lock store's atomic
// claim and the durable store's unique indexes is advisory, which is
// why Confirm re-checks both invariants against the database.
type ReservationService struct {
	locks        SeatLocker
	users        UserStore
	seats        SeatStore
	reservations ReservationStore
	events       Events

	// now is swappable so tests can pin the clock.
	now func() time.Time
}

// NewReservationService wires the workflow with its collaborators.
// events may be nil when no broker is configured.
func NewReservationService(locks SeatLocker, users UserStore, seats SeatStore, reservations ReservationStore, events Events) *ReservationService {
	if locks == nil || users == nil || seats == nil || reservations == nil {
		panic("nil dependency passed to NewReservationService")
	}
	return &ReservationService{
		locks:        locks,
		users:        users,
		seats:        seats,
		reservations: reservations,
		events:       events,
		now:          time.Now,
	}
}

// PreOccupy provisionally claims a seat for the user for up to five
// minutes.  The user rule is checked first so someone already occupying
// a seat cannot even take a lock; then the lock store's set-if-absent
// decides the race outright.  Losing yields ErrSeatAlreadyLocked with
// no queueing and no retry.
func (s *ReservationService) PreOccupy(ctx context.Context, userID uint64, seatNumber uint32) error {
	if _, err := s.seats.GetBySeatNumber(ctx, seatNumber); err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return ErrSeatNotFound
		}
		log.Printf("reservation: seat lookup failed: %v", err)
		return ErrInternal
	}
	active, err := s.reservations.ExistsActiveForUser(ctx, userID, s.now())
	if err != nil {
		log.Printf("reservation: active check failed: %v", err)
		return ErrInternal
	}
	if active {
		return ErrSeatAlreadyOccupied
	}
	if !s.locks.Claim(ctx, seatNumber, userID) {
		return ErrSeatAlreadyLocked
	}
	return nil
}

// Confirm converts the user's provisional claim into a durable
// reservation lasting the requested number of hours.  The lock is
// re-validated via Extend, which both proves ownership and keeps the
// claim alive through the database write.  The seat lock is released
// on every path out of this function so a failed confirm never strands
// the seat until TTL expiry.
func (s *ReservationService) Confirm(ctx context.Context, userID uint64, seatNumber uint32, hours int) (model.Reservation, error) {
	if hours <= 0 {
		return model.Reservation{}, ErrLockInvalid
	}
	if !s.locks.Extend(ctx, seatNumber, userID) {
		return model.Reservation{}, ErrLockInvalid
	}
	defer s.locks.Release(ctx, seatNumber)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.Reservation{}, ErrUserNotFound
		}
		log.Printf("reservation: user lookup failed: %v", err)
		return model.Reservation{}, ErrInternal
	}
	seat, err := s.seats.GetBySeatNumber(ctx, seatNumber)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return model.Reservation{}, ErrSeatNotFound
		}
		log.Printf("reservation: seat lookup failed: %v", err)
		return model.Reservation{}, ErrInternal
	}

	start := s.now()
	end := start.Add(time.Duration(hours) * time.Hour)
	res, err := s.reservations.CreateConfirmed(ctx, user.ID, seat.ID, start, end)
	if err != nil {
		if errors.Is(err, repository.ErrActiveConflict) {
			return model.Reservation{}, ErrSeatAlreadyOccupied
		}
		log.Printf("reservation: confirm insert failed: %v", err)
		return model.Reservation{}, ErrInternal
	}

	if s.events != nil {
		s.events.ReservationConfirmed(ctx, queue.ReservationConfirmedEvent{
			ReservationID: res.ID,
			UserID:        user.ID,
			SeatNumber:    seat.SeatNumber,
			StartTime:     res.StartTime.Format(time.RFC3339),
			EndTime:       res.EndTime.Format(time.RFC3339),
		})
	}
	return res, nil
}

// CancelPreOccupy drops the provisional claim on a seat.  It is
// idempotent and deliberately unconditional; releasing a lock that
// expired or never existed is harmless.
func (s *ReservationService) CancelPreOccupy(ctx context.Context, seatNumber uint32) {
	s.locks.Release(ctx, seatNumber)
}

// EndUse terminates the user's active reservation early, transitioning
// it CONFIRMED → CANCELLED.  Natural expiry is the sweeper's job; this
// path exists only for explicit checkout.
func (s *ReservationService) EndUse(ctx context.Context, userID uint64) error {
	active, err := s.reservations.ActiveByUser(ctx, userID, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoActiveReservation
		}
		log.Printf("reservation: active lookup failed: %v", err)
		return ErrInternal
	}
	changed, err := s.reservations.Cancel(ctx, active.ID)
	if err != nil {
		log.Printf("reservation: cancel failed: %v", err)
		return ErrInternal
	}
	if !changed {
		// Raced with the sweeper; the reservation is already terminal.
		return ErrNoActiveReservation
	}
	if s.events != nil {
		s.events.ReservationEnded(ctx, queue.ReservationEndedEvent{
			ReservationID: active.ID,
			UserID:        userID,
			SeatNumber:    active.SeatNumber,
			EndedAt:       s.now().UTC().Format(time.RFC3339),
		})
	}
	return nil
}

// CurrentSeat returns the seat number the user currently occupies.
func (s *ReservationService) CurrentSeat(ctx context.Context, userID uint64) (uint32, error) {
	active, err := s.reservations.ActiveByUser(ctx, userID, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNoActiveReservation
		}
		log.Printf("reservation: active lookup failed: %v", err)
		return 0, ErrInternal
	}
	return active.SeatNumber, nil
}

// SeatStatuses builds the status board by merging durable occupancy
// with ephemeral locks.  Occupancy is read first and takes precedence,
// so an expired-but-unreleased lock can never mask a seat that has
// since been confirmed.  Lock owners for every seat are fetched in one
// batched round trip.
func (s *ReservationService) SeatStatuses(ctx context.Context) ([]model.SeatStatus, error) {
	seats, err := s.seats.ListAll(ctx)
	if err != nil {
		log.Printf("reservation: seat list failed: %v", err)
		return nil, ErrInternal
	}
	occupied, err := s.reservations.OccupiedSeatNumbers(ctx, s.now())
	if err != nil {
		log.Printf("reservation: occupancy query failed: %v", err)
		return nil, ErrInternal
	}
	numbers := make([]uint32, len(seats))
	for i, seat := range seats {
		numbers[i] = seat.SeatNumber
	}
	locked := s.locks.OwnersOf(ctx, numbers)

	statuses := make([]model.SeatStatus, 0, len(seats))
	for _, seat := range seats {
		status := model.SeatAvailable
		if _, ok := occupied[seat.SeatNumber]; ok {
			status = model.SeatOccupied
		} else if _, ok := locked[seat.SeatNumber]; ok {
			status = model.SeatLocked
		}
		statuses = append(statuses, model.SeatStatus{SeatNumber: seat.SeatNumber, Status: status})
	}
	return statuses, nil
}
