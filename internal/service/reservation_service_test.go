package service

import (
	"context"
	"database/sql"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/study-cafe-reservation/internal/model"
	"github.com/iliyamo/study-cafe-reservation/internal/queue"
	"github.com/iliyamo/study-cafe-reservation/internal/repository"
)

// fakeLocker is an in-memory SeatLocker with the same single-winner
// semantics as the Redis-backed implementation.
type fakeLocker struct {
	mu       sync.Mutex
	owners   map[uint32]uint64
	released []uint32
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{owners: map[uint32]uint64{}}
}

func (f *fakeLocker) Claim(_ context.Context, seat uint32, user uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.owners[seat]; held {
		return false
	}
	f.owners[seat] = user
	return true
}

func (f *fakeLocker) Extend(_ context.Context, seat uint32, user uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	owner, held := f.owners[seat]
	return held && owner == user
}

func (f *fakeLocker) Release(_ context.Context, seat uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.owners, seat)
	f.released = append(f.released, seat)
}

func (f *fakeLocker) OwnersOf(_ context.Context, seats []uint32) map[uint32]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[uint32]string{}
	for _, s := range seats {
		if owner, held := f.owners[s]; held {
			out[s] = strconv.FormatUint(owner, 10)
		}
	}
	return out
}

type fakeUsers struct {
	users map[uint64]model.User
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

type fakeSeats struct {
	seats map[uint32]model.Seat
}

func (f *fakeSeats) GetBySeatNumber(_ context.Context, n uint32) (model.Seat, error) {
	s, ok := f.seats[n]
	if !ok {
		return model.Seat{}, repository.ErrSeatNotFound
	}
	return s, nil
}

func (f *fakeSeats) ListAll(_ context.Context) ([]model.Seat, error) {
	out := make([]model.Seat, 0, len(f.seats))
	for n := uint32(1); n <= uint32(len(f.seats)); n++ {
		out = append(out, f.seats[n])
	}
	return out, nil
}

type fakeReservations struct {
	mu         sync.Mutex
	activeUser map[uint64]bool
	activeSeat map[uint64]bool
	created    []model.Reservation
	nextID     uint64
	active     *repository.ActiveReservation
	occupied   map[uint32]struct{}
	cancelled  []uint64
}

func newFakeReservations() *fakeReservations {
	return &fakeReservations{
		activeUser: map[uint64]bool{},
		activeSeat: map[uint64]bool{},
		occupied:   map[uint32]struct{}{},
		nextID:     1,
	}
}

func (f *fakeReservations) ExistsActiveForUser(_ context.Context, userID uint64, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeUser[userID], nil
}

// CreateConfirmed mirrors the real repository: the uniqueness guard is
// checked and the row recorded atomically under one lock.
func (f *fakeReservations) CreateConfirmed(_ context.Context, userID, seatID uint64, start, end time.Time) (model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activeSeat[seatID] || f.activeUser[userID] {
		return model.Reservation{}, repository.ErrActiveConflict
	}
	res := model.Reservation{
		ID:        f.nextID,
		UserID:    userID,
		SeatID:    seatID,
		StartTime: start,
		EndTime:   end,
		Status:    model.StatusConfirmed,
	}
	f.nextID++
	f.activeSeat[seatID] = true
	f.activeUser[userID] = true
	f.created = append(f.created, res)
	return res, nil
}

func (f *fakeReservations) ActiveByUser(_ context.Context, userID uint64, _ time.Time) (repository.ActiveReservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil || f.active.UserID != userID {
		return repository.ActiveReservation{}, sql.ErrNoRows
	}
	return *f.active, nil
}

func (f *fakeReservations) OccupiedSeatNumbers(_ context.Context, _ time.Time) (map[uint32]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uint32]struct{}, len(f.occupied))
	for n := range f.occupied {
		out[n] = struct{}{}
	}
	return out, nil
}

func (f *fakeReservations) Cancel(_ context.Context, id uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return f.active != nil && f.active.ID == id, nil
}

type fakeEvents struct {
	confirmed []queue.ReservationConfirmedEvent
	ended     []queue.ReservationEndedEvent
}

func (f *fakeEvents) ReservationConfirmed(_ context.Context, ev queue.ReservationConfirmedEvent) {
	f.confirmed = append(f.confirmed, ev)
}

func (f *fakeEvents) ReservationEnded(_ context.Context, ev queue.ReservationEndedEvent) {
	f.ended = append(f.ended, ev)
}

func newTestService(locks SeatLocker, reservations *fakeReservations) (*ReservationService, *fakeEvents) {
	users := &fakeUsers{users: map[uint64]model.User{
		100: {ID: 100, Email: "a@example.com"},
		200: {ID: 200, Email: "b@example.com"},
	}}
	seats := &fakeSeats{seats: map[uint32]model.Seat{}}
	for n := uint32(1); n <= 10; n++ {
		seats.seats[n] = model.Seat{ID: uint64(n), SeatNumber: n}
	}
	events := &fakeEvents{}
	svc := NewReservationService(locks, users, seats, reservations, events)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, events
}

func TestPreOccupy_Succeeds(t *testing.T) {
	locks := newFakeLocker()
	svc, _ := newTestService(locks, newFakeReservations())

	err := svc.PreOccupy(context.Background(), 100, 5)

	assert.NoError(t, err)
	assert.Equal(t, uint64(100), locks.owners[5])
}

func TestPreOccupy_RejectsUserWithActiveReservation(t *testing.T) {
	locks := newFakeLocker()
	reservations := newFakeReservations()
	reservations.activeUser[100] = true
	svc, _ := newTestService(locks, reservations)

	err := svc.PreOccupy(context.Background(), 100, 5)

	assert.ErrorIs(t, err, ErrSeatAlreadyOccupied)
	assert.Empty(t, locks.owners, "no lock may be taken when the user is already seated")
}

func TestPreOccupy_LosesRaceToHeldLock(t *testing.T) {
	locks := newFakeLocker()
	svc, _ := newTestService(locks, newFakeReservations())

	require.NoError(t, svc.PreOccupy(context.Background(), 100, 5))
	err := svc.PreOccupy(context.Background(), 200, 5)

	assert.ErrorIs(t, err, ErrSeatAlreadyLocked)
	assert.Equal(t, uint64(100), locks.owners[5], "first claimant keeps the seat")
}

func TestPreOccupy_UnknownSeat(t *testing.T) {
	svc, _ := newTestService(newFakeLocker(), newFakeReservations())

	err := svc.PreOccupy(context.Background(), 100, 999)

	assert.ErrorIs(t, err, ErrSeatNotFound)
}

func TestPreOccupy_ExactlyOneConcurrentWinner(t *testing.T) {
	locks := newFakeLocker()
	svc, _ := newTestService(locks, newFakeReservations())

	const claimants = 100
	var wg sync.WaitGroup
	errs := make(chan error, claimants)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(user uint64) {
			defer wg.Done()
			errs <- svc.PreOccupy(context.Background(), user, 1)
		}(uint64(300 + i))
	}
	wg.Wait()
	close(errs)

	wins, losses := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case err == ErrSeatAlreadyLocked:
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, claimants-1, losses)
}

func TestConfirm_CreatesReservationAndReleasesLock(t *testing.T) {
	locks := newFakeLocker()
	reservations := newFakeReservations()
	svc, events := newTestService(locks, reservations)
	ctx := context.Background()

	require.NoError(t, svc.PreOccupy(ctx, 100, 5))
	res, err := svc.Confirm(ctx, 100, 5, 2)

	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, res.EndTime.Sub(res.StartTime))
	assert.True(t, res.EndTime.After(res.StartTime))
	assert.Empty(t, locks.owners, "lock must be released after a successful confirm")
	require.Len(t, events.confirmed, 1)
	assert.Equal(t, uint32(5), events.confirmed[0].SeatNumber)
}

func TestConfirm_WithoutLockFailsAndCreatesNothing(t *testing.T) {
	locks := newFakeLocker()
	reservations := newFakeReservations()
	svc, _ := newTestService(locks, reservations)

	// No claim was ever made; this mirrors a TTL expiry as well.
	_, err := svc.Confirm(context.Background(), 100, 5, 2)

	assert.ErrorIs(t, err, ErrLockInvalid)
	assert.Empty(t, reservations.created)
}

func TestConfirm_ByNonHolderFailsEvenWhileSeatIsLocked(t *testing.T) {
	locks := newFakeLocker()
	reservations := newFakeReservations()
	svc, _ := newTestService(locks, reservations)
	ctx := context.Background()

	require.NoError(t, svc.PreOccupy(ctx, 100, 5))
	_, err := svc.Confirm(ctx, 200, 5, 2)

	assert.ErrorIs(t, err, ErrLockInvalid)
	assert.Empty(t, reservations.created)
	assert.Equal(t, uint64(100), locks.owners[5], "the rightful holder's lock must survive")
	assert.Empty(t, locks.released, "a non-holder must never release someone else's lock")
}

func TestConfirm_DurableConflictReleasesLock(t *testing.T) {
	locks := newFakeLocker()
	reservations := newFakeReservations()
	// The seat got a confirmed reservation through another path while
	// this user's lock survived a lock-store restart.
	reservations.activeSeat[5] = true
	svc, _ := newTestService(locks, reservations)
	ctx := context.Background()

	require.NoError(t, locksClaim(locks, 5, 100))
	_, err := svc.Confirm(ctx, 100, 5, 2)

	assert.ErrorIs(t, err, ErrSeatAlreadyOccupied)
	assert.Empty(t, reservations.created)
	assert.Contains(t, locks.released, uint32(5), "lock must be released on the failure path too")
}

// locksClaim claims directly against the fake, bypassing the workflow's
// user-active pre-check.
func locksClaim(l *fakeLocker, seat uint32, user uint64) error {
	if !l.Claim(context.Background(), seat, user) {
		return ErrSeatAlreadyLocked
	}
	return nil
}

func TestConfirm_ConcurrentConfirmsYieldOneReservation(t *testing.T) {
	locks := newFakeLocker()
	reservations := newFakeReservations()
	svc, _ := newTestService(locks, reservations)

	// Both users somehow believe they hold a claim on different seats
	// for the same user set; drive concurrent confirms on one seat via
	// two separate locks after a simulated lock-store flush.
	require.NoError(t, locksClaim(locks, 5, 100))

	var wg sync.WaitGroup
	outcomes := make(chan error, 2)
	for _, user := range []uint64{100, 200} {
		wg.Add(1)
		go func(u uint64) {
			defer wg.Done()
			// User 200 never held the lock and must fail the ownership
			// check; user 100 proceeds to the durable insert.
			_, err := svc.Confirm(context.Background(), u, 5, 1)
			outcomes <- err
		}(user)
	}
	wg.Wait()
	close(outcomes)

	assert.Len(t, reservations.created, 1, "at most one CONFIRMED row per seat")
}

func TestCancelPreOccupy_FreesSeatImmediately(t *testing.T) {
	locks := newFakeLocker()
	svc, _ := newTestService(locks, newFakeReservations())
	ctx := context.Background()

	require.NoError(t, svc.PreOccupy(ctx, 100, 7))
	svc.CancelPreOccupy(ctx, 7)

	assert.NoError(t, svc.PreOccupy(ctx, 200, 7), "seat must be claimable right after cancel")
}

func TestEndUse_CancelsActiveReservation(t *testing.T) {
	reservations := newFakeReservations()
	reservations.active = &repository.ActiveReservation{
		Reservation: model.Reservation{ID: 9, UserID: 100, SeatID: 5, Status: model.StatusConfirmed},
		SeatNumber:  5,
	}
	svc, events := newTestService(newFakeLocker(), reservations)

	err := svc.EndUse(context.Background(), 100)

	assert.NoError(t, err)
	assert.Equal(t, []uint64{9}, reservations.cancelled)
	require.Len(t, events.ended, 1)
	assert.Equal(t, uint64(9), events.ended[0].ReservationID)
}

func TestEndUse_NothingActive(t *testing.T) {
	svc, _ := newTestService(newFakeLocker(), newFakeReservations())

	err := svc.EndUse(context.Background(), 100)

	assert.ErrorIs(t, err, ErrNoActiveReservation)
}

func TestCurrentSeat(t *testing.T) {
	reservations := newFakeReservations()
	reservations.active = &repository.ActiveReservation{
		Reservation: model.Reservation{ID: 9, UserID: 100, SeatID: 5},
		SeatNumber:  5,
	}
	svc, _ := newTestService(newFakeLocker(), reservations)

	seat, err := svc.CurrentSeat(context.Background(), 100)
	assert.NoError(t, err)
	assert.Equal(t, uint32(5), seat)

	_, err = svc.CurrentSeat(context.Background(), 200)
	assert.ErrorIs(t, err, ErrNoActiveReservation)
}

func TestSeatStatuses_DurableBeatsEphemeral(t *testing.T) {
	locks := newFakeLocker()
	reservations := newFakeReservations()
	reservations.occupied[2] = struct{}{}
	reservations.occupied[3] = struct{}{}
	svc, _ := newTestService(locks, reservations)
	ctx := context.Background()

	require.NoError(t, locksClaim(locks, 1, 100)) // plain lock
	require.NoError(t, locksClaim(locks, 3, 200)) // stale lock under a confirmed seat

	statuses, err := svc.SeatStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 10)

	byStatus := map[uint32]string{}
	for _, s := range statuses {
		byStatus[s.SeatNumber] = s.Status
	}
	assert.Equal(t, model.SeatLocked, byStatus[1])
	assert.Equal(t, model.SeatOccupied, byStatus[2])
	assert.Equal(t, model.SeatOccupied, byStatus[3], "occupied must mask the leftover lock")
	assert.Equal(t, model.SeatAvailable, byStatus[4])

	// The board is ordered by seat number.
	for i, s := range statuses {
		assert.Equal(t, uint32(i+1), s.SeatNumber)
	}
}

func TestClaimConfirmCheckoutScenario(t *testing.T) {
	locks := newFakeLocker()
	reservations := newFakeReservations()
	svc, _ := newTestService(locks, reservations)
	ctx := context.Background()

	// User A claims seat 5; the board shows it LOCKED.
	require.NoError(t, svc.PreOccupy(ctx, 100, 5))
	statuses, err := svc.SeatStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SeatLocked, statuses[4].Status)

	// User B is rejected while the claim is live.
	assert.ErrorIs(t, svc.PreOccupy(ctx, 200, 5), ErrSeatAlreadyLocked)

	// A confirms for 2 hours; the durable row now owns the seat.
	res, err := svc.Confirm(ctx, 100, 5, 2)
	require.NoError(t, err)
	reservations.occupied[5] = struct{}{} // the confirmed interval covers now

	statuses, err = svc.SeatStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SeatOccupied, statuses[4].Status)

	// B's later claim attempt still fails, now on the durable state.
	require.NoError(t, locksClaim(locks, 5, 200))
	_, err = svc.Confirm(ctx, 200, 5, 1)
	assert.ErrorIs(t, err, ErrSeatAlreadyOccupied)

	assert.True(t, res.EndTime.Sub(res.StartTime) == 2*time.Hour)
}
