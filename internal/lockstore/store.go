// Package lockstore wraps the Redis client behind the narrow set of
// atomic primitives the locking layer needs: set-if-absent with expiry,
// owner lookup, owner-conditional refresh, delete and a pipelined batch
// lookup.  Every operation converts a Redis failure into a conservative
// answer (false, absent or empty) so that a lock-store outage degrades
// locking instead of crashing request handling.
package lockstore

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RefreshScript extends the TTL of a key only when its current value
// equals the supposed owner.  Running it as a Lua script makes the
// owner check and the expiry update one atomic step on the server, so
// a lock that changed hands between GET and EXPIRE can never be
// refreshed by its previous owner.
const RefreshScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`

var refreshCmd = redis.NewScript(RefreshScript)

// Store is a thin adapter over a Redis client.  A nil client is
// tolerated and behaves as a permanently unavailable store: acquires
// and refreshes fail, lookups come back empty.
type Store struct {
	rdb *redis.Client
}

// New returns a Store bound to the given Redis client.  The client may
// be nil when Redis could not be reached at startup; callers then run
// in degraded mode and every lock attempt is rejected.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Acquire stores owner under key with the given TTL only when the key
// is absent (SETNX).  It returns true when this caller won the key.
func (s *Store) Acquire(ctx context.Context, key, owner string, ttl time.Duration) bool {
	if s.rdb == nil {
		return false
	}
	ok, err := s.rdb.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		log.Printf("lockstore: acquire %s failed: %v", key, err)
		return false
	}
	return ok
}

// Owner returns the current owner of key.  The second return value is
// false when the key does not exist or the store is unreachable.
func (s *Store) Owner(ctx context.Context, key string) (string, bool) {
	if s.rdb == nil {
		return "", false
	}
	v, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		log.Printf("lockstore: owner lookup %s failed: %v", key, err)
		return "", false
	}
	return v, true
}

// Refresh resets the TTL of key to ttl only when owner still holds it.
// It returns false when the key is absent, held by someone else or the
// store is unreachable.
func (s *Store) Refresh(ctx context.Context, key, owner string, ttl time.Duration) bool {
	if s.rdb == nil {
		return false
	}
	n, err := refreshCmd.Run(ctx, s.rdb, []string{key}, owner, ttl.Milliseconds()).Int()
	if err != nil {
		log.Printf("lockstore: refresh %s failed: %v", key, err)
		return false
	}
	return n == 1
}

// Release deletes key unconditionally.  It never reports an error to
// the caller: a failed delete only leaves a lock that self-heals via
// its TTL, so the failure is logged and swallowed.
func (s *Store) Release(ctx context.Context, key string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		log.Printf("lockstore: release %s failed: %v", key, err)
	}
}

// Owners fetches the owners of all given keys in a single pipelined
// round trip.  Absent keys are omitted from the result.  On transport
// failure an empty map is returned so callers render every seat as
// unlocked rather than failing the whole request.
func (s *Store) Owners(ctx context.Context, keys []string) map[string]string {
	owners := make(map[string]string, len(keys))
	if s.rdb == nil || len(keys) == 0 {
		return owners
	}
	cmds := make([]*redis.StringCmd, len(keys))
	pipe := s.rdb.Pipeline()
	for i, k := range keys {
		cmds[i] = pipe.Get(ctx, k)
	}
	// Exec surfaces redis.Nil when any key is missing; that is the
	// expected case for free seats, not a failure.
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		log.Printf("lockstore: batch owner lookup failed: %v", err)
		return map[string]string{}
	}
	for i, cmd := range cmds {
		if cmd.Err() == nil {
			owners[keys[i]] = cmd.Val()
		}
	}
	return owners
}
