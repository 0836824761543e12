// Package cellarbiter arbitrates grid cells between processes sharing one logical grid.
package cellarbiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/beka-birhanu/vinom-tiles/grid"
	"github.com/beka-birhanu/vinom-tiles/service/i"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// cell key string format: prefix, x, y
	cellKeyFmt = "%s:cell:%d:%d"

	defaultTTL       = 5 * time.Minute
	defaultOpTimeout = 500 * time.Millisecond
)

type heldCell struct {
	pos   grid.Position
	mutex *redsync.Mutex
}

// RedisArbiter holds one redsync mutex per claimed cell. The mutex value is the
// reservation ID, so only the reservation that locked a cell can unlock it. Held locks
// are extended every third of their TTL until released.
type RedisArbiter struct {
	client    *redis.Client
	locker    *redsync.Redsync
	prefix    string
	ttl       time.Duration
	refresh   time.Duration
	opTimeout time.Duration
	logger    i.Logger
	held      map[uuid.UUID]heldCell // Locks acquired by this process, by reservation.
	extending bool                   // Whether the extend loop is running.
	mu        sync.Mutex
}

// NewRedisArbiter creates an arbiter storing cell locks under prefix. Processes using
// the same prefix contend for the same cells.
func NewRedisArbiter(client *redis.Client, prefix string, ttlSeconds int, logger i.Logger) *RedisArbiter {
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultTTL
	}

	pool := goredis.NewPool(client)
	return &RedisArbiter{
		client:    client,
		locker:    redsync.New(pool),
		prefix:    prefix,
		ttl:       ttl,
		refresh:   ttl / 3,
		opTimeout: defaultOpTimeout,
		logger:    logger,
		held:      make(map[uuid.UUID]heldCell),
	}
}

func (a *RedisArbiter) key(pos grid.Position) string {
	return fmt.Sprintf(cellKeyFmt, a.prefix, pos.X, pos.Y)
}

// Acquire tries the cell lock exactly once. When the cell is taken it reports the
// owning reservation ID as stored in Redis.
func (a *RedisArbiter) Acquire(pos grid.Position, id uuid.UUID) (uuid.UUID, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.opTimeout)
	defer cancel()

	key := a.key(pos)
	mutex := a.locker.NewMutex(key,
		redsync.WithTries(1),
		redsync.WithExpiry(a.ttl),
		redsync.WithGenValueFunc(func() (string, error) { return id.String(), nil }),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if !isTaken(err) {
			return uuid.Nil, false, err
		}

		owner, err := a.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			// Expired between the lock attempt and the read; still a lost race.
			return uuid.Nil, false, nil
		}
		if err != nil {
			return uuid.Nil, false, err
		}
		ownerID, err := uuid.Parse(owner)
		if err != nil {
			return uuid.Nil, false, fmt.Errorf("cell %s holds a non-UUID owner %q", key, owner)
		}
		return ownerID, false, nil
	}

	a.mu.Lock()
	a.held[id] = heldCell{pos: pos, mutex: mutex}
	if !a.extending {
		a.extending = true
		go a.extendLoop()
	}
	a.mu.Unlock()
	return id, true, nil
}

// Release unlocks the cell if id still owns it in Redis.
func (a *RedisArbiter) Release(pos grid.Position, id uuid.UUID) error {
	a.mu.Lock()
	cell, ok := a.held[id]
	delete(a.held, id)
	a.mu.Unlock()
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.opTimeout)
	defer cancel()

	ok, err := cell.mutex.UnlockContext(ctx)
	if err != nil && !isTaken(err) {
		return err
	}
	if !ok {
		return fmt.Errorf("cell %s no longer owned by %s", a.key(pos), id)
	}
	return nil
}

// extendLoop keeps every held lock alive and exits once nothing is held.
func (a *RedisArbiter) extendLoop() {
	ticker := time.NewTicker(a.refresh)
	defer ticker.Stop()

	for range ticker.C {
		a.mu.Lock()
		if len(a.held) == 0 {
			a.extending = false
			a.mu.Unlock()
			return
		}
		cells := make(map[uuid.UUID]heldCell, len(a.held))
		for id, cell := range a.held {
			cells[id] = cell
		}
		a.mu.Unlock()

		for id, cell := range cells {
			a.extend(id, cell)
		}
	}
}

func (a *RedisArbiter) extend(id uuid.UUID, cell heldCell) {
	ctx, cancel := context.WithTimeout(context.Background(), a.opTimeout)
	defer cancel()

	ok, err := cell.mutex.ExtendContext(ctx)
	if err == nil && ok {
		return
	}

	a.mu.Lock()
	_, stillHeld := a.held[id]
	a.mu.Unlock()
	if stillHeld && a.logger != nil {
		a.logger.Warning(fmt.Sprintf("extending lock on %s for %s: ok=%t err=%v", a.key(cell.pos), id, ok, err))
	}
}

func isTaken(err error) bool {
	var taken *redsync.ErrTaken
	var nodeTaken *redsync.ErrNodeTaken
	return errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) || errors.As(err, &nodeTaken)
}
