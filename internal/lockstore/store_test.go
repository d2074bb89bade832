package lockstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestAcquire_WinsWhenKeyAbsent(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := New(db)

	mock.ExpectSetNX("seat_lock:5", "7", 5*time.Minute).SetVal(true)

	ok := store.Acquire(context.Background(), "seat_lock:5", "7", 5*time.Minute)

	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_LosesWhenKeyHeld(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := New(db)

	mock.ExpectSetNX("seat_lock:5", "8", 5*time.Minute).SetVal(false)

	ok := store.Acquire(context.Background(), "seat_lock:5", "8", 5*time.Minute)

	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_StoreFailureIsConservative(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := New(db)

	mock.ExpectSetNX("seat_lock:5", "7", time.Minute).SetErr(errors.New("connection refused"))

	ok := store.Acquire(context.Background(), "seat_lock:5", "7", time.Minute)

	assert.False(t, ok)
}

func TestOwner(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := New(db)

	mock.ExpectGet("seat_lock:3").SetVal("42")
	owner, ok := store.Owner(context.Background(), "seat_lock:3")
	assert.True(t, ok)
	assert.Equal(t, "42", owner)

	mock.ExpectGet("seat_lock:4").RedisNil()
	_, ok = store.Owner(context.Background(), "seat_lock:4")
	assert.False(t, ok)

	mock.ExpectGet("seat_lock:5").SetErr(errors.New("connection refused"))
	_, ok = store.Owner(context.Background(), "seat_lock:5")
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefresh_OnlyForMatchingOwner(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := New(db)
	sha := redis.NewScript(RefreshScript).Hash()

	mock.ExpectEvalSha(sha, []string{"seat_lock:9"}, "7", int64(300000)).SetVal(int64(1))
	ok := store.Refresh(context.Background(), "seat_lock:9", "7", 5*time.Minute)
	assert.True(t, ok)

	// Script returns 0 for a missing key or a different owner.
	mock.ExpectEvalSha(sha, []string{"seat_lock:9"}, "8", int64(300000)).SetVal(int64(0))
	ok = store.Refresh(context.Background(), "seat_lock:9", "8", 5*time.Minute)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefresh_StoreFailureIsConservative(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := New(db)
	sha := redis.NewScript(RefreshScript).Hash()

	mock.ExpectEvalSha(sha, []string{"seat_lock:9"}, "7", int64(300000)).SetErr(errors.New("connection refused"))

	ok := store.Refresh(context.Background(), "seat_lock:9", "7", 5*time.Minute)
	assert.False(t, ok)
}

func TestRelease_SwallowsErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := New(db)

	mock.ExpectDel("seat_lock:2").SetVal(1)
	store.Release(context.Background(), "seat_lock:2")

	// A failed delete must not panic or propagate; the TTL self-heals.
	mock.ExpectDel("seat_lock:2").SetErr(errors.New("connection refused"))
	store.Release(context.Background(), "seat_lock:2")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwners_OmitsAbsentKeys(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := New(db)

	mock.ExpectGet("seat_lock:1").SetVal("11")
	mock.ExpectGet("seat_lock:2").RedisNil()
	mock.ExpectGet("seat_lock:3").SetVal("33")

	owners := store.Owners(context.Background(), []string{"seat_lock:1", "seat_lock:2", "seat_lock:3"})

	assert.Equal(t, map[string]string{"seat_lock:1": "11", "seat_lock:3": "33"}, owners)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwners_EmptyInput(t *testing.T) {
	db, _ := redismock.NewClientMock()
	store := New(db)

	owners := store.Owners(context.Background(), nil)
	assert.Empty(t, owners)
}

func TestNilClientDegradesEveryOperation(t *testing.T) {
	store := New(nil)
	ctx := context.Background()

	assert.False(t, store.Acquire(ctx, "k", "o", time.Minute))
	assert.False(t, store.Refresh(ctx, "k", "o", time.Minute))
	_, ok := store.Owner(ctx, "k")
	assert.False(t, ok)
	assert.Empty(t, store.Owners(ctx, []string{"k"}))
	store.Release(ctx, "k") // must not panic
}
