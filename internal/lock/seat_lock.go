// Package lock implements the seat locking protocol on top of the lock
// store adapter.  A seat lock is a purely ephemeral claim: it lives only
// in Redis, carries the claiming user's ID as its value and disappears
// either through an explicit release or its five-minute TTL.  Holding
// the lock is not a promise that a reservation will be confirmed; its
// whole contract is that no two users hold the same seat concurrently.
package lock

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// seatLockTTL bounds how long a provisional claim may keep a seat away
// from other users before it self-heals.
const seatLockTTL = 5 * time.Minute

// Store is the subset of lock-store primitives the manager relies on.
// internal/lockstore.Store satisfies it; tests substitute fakes.
type Store interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) bool
	Owner(ctx context.Context, key string) (string, bool)
	Refresh(ctx context.Context, key, owner string, ttl time.Duration) bool
	Release(ctx context.Context, key string)
	Owners(ctx context.Context, keys []string) map[string]string
}

// SeatLock translates seat numbers and user IDs into lock-store keys
// and owners and enforces the ownership rules of the claim protocol.
type SeatLock struct {
	store Store
}

// NewSeatLock returns a SeatLock backed by the given store.
func NewSeatLock(store Store) *SeatLock {
	if store == nil {
		panic("nil store passed to NewSeatLock")
	}
	return &SeatLock{store: store}
}

// Key derives the lock-store key for a seat.  The prefix keeps seat
// locks apart from other keys sharing the Redis database.
func Key(seatNumber uint32) string {
	return fmt.Sprintf("seat_lock:%d", seatNumber)
}

// ownerValue is the string written into the lock entry; the numeric
// user ID is used verbatim so the aggregator can report it back.
func ownerValue(userID uint64) string {
	return strconv.FormatUint(userID, 10)
}

// Claim attempts to take the seat for the user.  Exactly one concurrent
// caller wins; everyone else gets false immediately.  No retrying is
// performed here, losing callers decide their own policy.
func (l *SeatLock) Claim(ctx context.Context, seatNumber uint32, userID uint64) bool {
	return l.store.Acquire(ctx, Key(seatNumber), ownerValue(userID), seatLockTTL)
}

// Extend resets the TTL of the user's claim.  It returns false when the
// lock expired or belongs to someone else, which callers must treat as
// "lock lost".  The owner check and the TTL reset are one atomic step
// inside the store adapter.
func (l *SeatLock) Extend(ctx context.Context, seatNumber uint32, userID uint64) bool {
	return l.store.Refresh(ctx, Key(seatNumber), ownerValue(userID), seatLockTTL)
}

// Release drops the seat lock regardless of who holds it.  It is used
// after a confirm (successful or not) and on explicit cancellation, and
// is safe to call when no lock exists.
func (l *SeatLock) Release(ctx context.Context, seatNumber uint32) {
	l.store.Release(ctx, Key(seatNumber))
}

// OwnerOf reports the user currently holding the seat lock, if any.
func (l *SeatLock) OwnerOf(ctx context.Context, seatNumber uint32) (string, bool) {
	return l.store.Owner(ctx, Key(seatNumber))
}

// OwnersOf returns the lock owners for all given seats in one store
// round trip, keyed by seat number.  Seats without a lock are omitted.
func (l *SeatLock) OwnersOf(ctx context.Context, seatNumbers []uint32) map[uint32]string {
	keys := make([]string, len(seatNumbers))
	for i, n := range seatNumbers {
		keys[i] = Key(n)
	}
	byKey := l.store.Owners(ctx, keys)
	owners := make(map[uint32]string, len(byKey))
	for i, n := range seatNumbers {
		if v, ok := byKey[keys[i]]; ok {
			owners[n] = v
		}
	}
	return owners
}
