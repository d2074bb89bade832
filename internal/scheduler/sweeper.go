// Package scheduler runs the periodic auto-checkout sweep that moves
// expired CONFIRMED reservations to COMPLETED.  The sweep runs in its
// own goroutine, independent of request traffic, and coordinates with
// sweeps on other server instances through a short-lived Redis guard
// key so no two instances process the same rows concurrently.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// guardKey is the cross-instance mutual exclusion key for the sweep.
// This is a cooperative scheduling lock, unrelated to per-seat locks.
const guardKey = "scheduler_lock:auto_checkout"

// guardTTL bounds how long one instance may hold the sweep.  If the
// holder crashes mid-sweep, the key expires and another instance takes
// over on its next tick.
const guardTTL = 30 * time.Second

// ReservationCompleter is the single durable operation the sweeper
// needs: the atomic bulk transition of expired rows.
type ReservationCompleter interface {
	CompleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Guard is the subset of lock-store primitives used for cross-instance
// exclusion.  internal/lockstore.Store satisfies it.
type Guard interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) bool
	Release(ctx context.Context, key string)
}

// Sweeper periodically completes expired reservations.
type Sweeper struct {
	reservations ReservationCompleter
	guard        Guard
	interval     time.Duration

	// instanceID identifies this process as the guard owner; it only
	// matters for debugging which instance swept.
	instanceID string

	// now is swappable so tests can pin the clock.
	now func() time.Time
}

// NewSweeper returns a Sweeper ticking at the given interval.
func NewSweeper(reservations ReservationCompleter, guard Guard, interval time.Duration) *Sweeper {
	if reservations == nil || guard == nil {
		panic("nil dependency passed to NewSweeper")
	}
	return &Sweeper{
		reservations: reservations,
		guard:        guard,
		interval:     interval,
		instanceID:   uuid.NewString(),
		now:          time.Now,
	}
}

// Start runs the sweep loop until ctx is cancelled.  It is intended to
// be launched in a dedicated goroutine from main.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("sweeper: started (interval=%s, instance=%s)", s.interval, s.instanceID)

	for {
		select {
		case <-ctx.Done():
			log.Printf("sweeper: stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep performs one guarded auto-checkout pass.  When another instance
// holds the guard the pass is skipped silently; the update is a single
// atomic statement and idempotent, so skipped ticks lose nothing.
func (s *Sweeper) sweep(ctx context.Context) {
	if !s.guard.Acquire(ctx, guardKey, s.instanceID, guardTTL) {
		return
	}
	defer s.guard.Release(ctx, guardKey)

	// Bound the pass so a slow database can never outlive the guard.
	tickCtx, cancel := context.WithTimeout(ctx, guardTTL)
	defer cancel()

	n, err := s.reservations.CompleteExpired(tickCtx, s.now())
	if err != nil {
		log.Printf("sweeper: auto-checkout failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("sweeper: auto-checked-out %d expired reservations", n)
	}
}
