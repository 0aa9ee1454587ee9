package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(0)
	defer store.Close()

	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	s := &Session{ID: "sess-1", UserID: 7, Username: "asha", Role: "user"}
	require.NoError(t, store.Put(ctx, s, time.Hour))
	assert.Equal(t, clock.Add(time.Hour), s.ExpiresAt)

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "asha", got.Username)

	clock = clock.Add(2 * time.Hour)
	_, err = store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestMemorySessionStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(0)
	defer store.Close()

	require.NoError(t, store.Put(ctx, &Session{ID: "sess-1"}, time.Hour))
	require.NoError(t, store.Delete(ctx, "sess-1"))

	_, err := store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.NoError(t, store.Delete(ctx, "never-existed"))
}

func TestMemorySessionStoreSweep(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(0)
	defer store.Close()

	clock := time.Now()
	store.now = func() time.Time { return clock }

	require.NoError(t, store.Put(ctx, &Session{ID: "short"}, time.Minute))
	require.NoError(t, store.Put(ctx, &Session{ID: "long"}, time.Hour))

	clock = clock.Add(10 * time.Minute)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	_, err := store.Get(ctx, "long")
	assert.NoError(t, err)
}

func newTestRedisStore(t *testing.T) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisSessionStore(context.Background(), &redis.Options{Addr: mr.Addr()}, "test:session:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisSessionStore(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	s := &Session{ID: "sess-1", UserID: 7, Username: "asha", Role: "admin", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Put(ctx, s, time.Hour))

	assert.True(t, mr.Exists("test:session:sess-1"))
	assert.Equal(t, time.Hour, mr.TTL("test:session:sess-1"))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, "admin", got.Role)

	mr.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionStoreDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)

	require.NoError(t, store.Put(ctx, &Session{ID: "sess-1"}, time.Hour))
	require.NoError(t, store.Delete(ctx, "sess-1"))

	_, err := store.Get(ctx, "sess-1")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestRedisSessionStoreCorruptValue(t *testing.T) {
	store, mr := newTestRedisStore(t)
	require.NoError(t, mr.Set("test:session:bad", "not json"))

	_, err := store.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSessionNotFound))
}

func TestNewRedisSessionStoreUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewRedisSessionStore(ctx, &redis.Options{Addr: "127.0.0.1:1"}, "x:")
	assert.Error(t, err)
}
