package cellarbiter

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/beka-birhanu/vinom-tiles/config"
	"github.com/beka-birhanu/vinom-tiles/grid"
	logger "github.com/beka-birhanu/vinom-tiles/infrastruture/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newArbiter(t *testing.T, client *redis.Client, prefix string, ttlSeconds int) *RedisArbiter {
	t.Helper()
	lg, err := logger.New("ARBITER", config.ColorBlue, &bytes.Buffer{})
	require.NoError(t, err)
	return NewRedisArbiter(client, prefix, ttlSeconds, lg)
}

func heldCount(a *RedisArbiter) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.held)
}

func TestRedisArbiter(t *testing.T) {
	mr, client := newRedis(t)
	first := newArbiter(t, client, "tiles:lobby", 30)
	second := newArbiter(t, client, "tiles:lobby", 30)
	pos := grid.Position{X: 3, Y: 4}

	owner := uuid.New()
	got, ok, err := first.Acquire(pos, owner)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, owner, got)
	assert.Equal(t, 1, heldCount(first))

	stored, err := mr.Get("tiles:lobby:cell:3:4")
	require.NoError(t, err)
	assert.Equal(t, owner.String(), stored)

	rival := uuid.New()
	got, ok, err = second.Acquire(pos, rival)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, owner, got)
	assert.Zero(t, heldCount(second))

	// A release by a non-owner leaves the lock in place.
	require.NoError(t, second.Release(pos, rival))
	assert.True(t, mr.Exists("tiles:lobby:cell:3:4"))

	require.NoError(t, first.Release(pos, owner))
	assert.Zero(t, heldCount(first))
	assert.False(t, mr.Exists("tiles:lobby:cell:3:4"))

	got, ok, err = second.Acquire(pos, rival)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, rival, got)
	require.NoError(t, second.Release(pos, rival))
}

func TestPrefixesDoNotCollide(t *testing.T) {
	_, client := newRedis(t)
	a := newArbiter(t, client, "tiles:a", 30)
	b := newArbiter(t, client, "tiles:b", 30)
	pos := grid.Position{X: 0, Y: 0}

	_, ok, err := a.Acquire(pos, uuid.New())
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = b.Acquire(pos, uuid.New())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExpiredLockCanBeTaken(t *testing.T) {
	mr, client := newRedis(t)
	first := newArbiter(t, client, "tiles:lobby", 1)
	first.refresh = time.Hour
	second := newArbiter(t, client, "tiles:lobby", 1)
	second.refresh = time.Hour
	pos := grid.Position{X: 1, Y: 1}

	owner := uuid.New()
	_, ok, err := first.Acquire(pos, owner)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	rival := uuid.New()
	got, ok, err := second.Acquire(pos, rival)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, rival, got)

	// The stale owner cannot release the rival's lock.
	assert.Error(t, first.Release(pos, owner))
	assert.True(t, mr.Exists("tiles:lobby:cell:1:1"))
}

func TestHeldLocksAreExtended(t *testing.T) {
	mr, client := newRedis(t)
	a := newArbiter(t, client, "tiles:lobby", 3)
	a.refresh = 10 * time.Millisecond
	pos := grid.Position{X: 2, Y: 0}
	key := "tiles:lobby:cell:2:0"

	id := uuid.New()
	_, ok, err := a.Acquire(pos, id)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	require.Less(t, mr.TTL(key), 2*time.Second)

	assert.Eventually(t, func() bool { return mr.TTL(key) > 2*time.Second }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Release(pos, id))
	assert.Eventually(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return !a.extending
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStoresShareCells(t *testing.T) {
	_, client := newRedis(t)

	a, err := grid.New(3, 3, grid.WithArbiter(newArbiter(t, client, "tiles:lobby", 30)))
	require.NoError(t, err)
	b, err := grid.New(3, 3, grid.WithArbiter(newArbiter(t, client, "tiles:lobby", 30)))
	require.NoError(t, err)

	mine, err := a.TryClaim(1, 1, "a")
	require.NoError(t, err)

	_, err = b.TryClaim(1, 1, "b")
	var occupied *grid.OccupiedError
	require.True(t, errors.As(err, &occupied))
	assert.Equal(t, mine.ID, occupied.Existing.ID)
	assert.True(t, occupied.Existing.Remote())
	assert.Nil(t, b.Lookup(1, 1))

	require.True(t, a.Release(mine))
	_, err = b.TryClaim(1, 1, "b")
	assert.NoError(t, err)
}

func TestAcquireFailsWithoutRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	a := newArbiter(t, client, "tiles:lobby", 30)

	_, ok, err := a.Acquire(grid.Position{}, uuid.New())
	assert.False(t, ok)
	assert.Error(t, err)
}
