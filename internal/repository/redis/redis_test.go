package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nammaspot/parkgo/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

type sessionState struct {
	City     string `json:"city"`
	Selected []int  `json:"selected"`
}

func TestSessionStore_RoundTrip(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()

	store := NewSessionStore[sessionState](New(rdb), KeySelection, time.Minute)

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, store.Save(ctx, "s1", sessionState{City: "Chennai", Selected: []int{2, 5}}))

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Chennai", got.City)
	assert.Equal(t, []int{2, 5}, got.Selected)

	mr.FastForward(2 * time.Minute)
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, store.Save(ctx, "s2", sessionState{City: "Pune"}))
	require.NoError(t, store.Delete(ctx, "s2"))
	_, err = store.Load(ctx, "s2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRemember_LoadsOnce(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	cache := New(rdb)

	var calls atomic.Int32
	loader := func(ctx context.Context) (sessionState, error) {
		calls.Add(1)
		return sessionState{City: "Mysuru"}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := Remember(ctx, cache, KeyTicketView("t1"), time.Minute, loader)
		require.NoError(t, err)
		assert.Equal(t, "Mysuru", v.City)
	}
	assert.Equal(t, int32(1), calls.Load())

	_, err := Remember(ctx, cache, KeyTicketView("t2"), time.Minute, func(ctx context.Context) (sessionState, error) {
		return sessionState{}, errors.New("boom")
	})
	assert.Error(t, err)
}

func TestIdempotencyStore(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	idem := NewIdempotencyStore(rdb, time.Hour)
	key := KeyIdemPaymentCallback("c1")

	res, err := idem.Begin(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, res)

	_, err = idem.Begin(ctx, key, time.Minute)
	assert.ErrorIs(t, err, ErrInProgress)

	require.NoError(t, idem.Complete(ctx, key, []byte(`{"pin":4821}`)))

	res, err = idem.Begin(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pin":4821}`, string(res))

	key2 := KeyIdemPaymentCallback("c2")
	_, err = idem.Begin(ctx, key2, time.Minute)
	require.NoError(t, err)
	require.NoError(t, idem.Abort(ctx, key2))
	res, err = idem.Begin(ctx, key2, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestFixedWindowLimiter(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	l := NewFixedWindowLimiter(rdb, "verify", 2, time.Minute)

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "op1")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, retry, err := l.Allow(ctx, "op1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))

	ok, _, err = l.Allow(ctx, "op2")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(time.Minute + time.Second)
	ok, _, err = l.Allow(ctx, "op1")
	require.NoError(t, err)
	assert.True(t, ok)

	unlimited := NewFixedWindowLimiter(rdb, "verify", 0, time.Minute)
	ok, _, err = unlimited.Allow(ctx, "op1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSlotsPubSub(t *testing.T) {
	_, rdb := newTestRedis(t)
	ps := NewSlotsPubSub(rdb)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- ps.Subscribe(ctx, func(ctx context.Context, city string) {
			got <- city
		})
	}()

	require.Eventually(t, func() bool {
		n, err := rdb.PubSubNumSub(ctx, ChannelSlotsChanged()).Result()
		return err == nil && n[ChannelSlotsChanged()] > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ps.PublishSlotsChanged(ctx, "Chennai"))

	select {
	case city := <-got:
		assert.Equal(t, "Chennai", city)
	case <-ctx.Done():
		t.Fatal("no message received")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
