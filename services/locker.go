package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const (
	orderLockExpiry = 10 * time.Second
	orderLockTries  = 32
)

// ErrLockBusy is returned when an order lock could not be acquired in time
var ErrLockBusy = errors.New("order is locked by another request")

// OrderLocker serializes status changes for a single order.
// The returned release func must always be called.
type OrderLocker interface {
	Lock(ctx context.Context, orderID string) (release func(), err error)
}

// RedisLocker holds per-order locks in redis so that every API replica
// shares them
type RedisLocker struct {
	rs  *redsync.Redsync
	log *log.Helper
}

// NewRedisLocker creates a redsync-backed locker
func NewRedisLocker(client *redis.Client, logger log.Logger) *RedisLocker {
	pool := goredis.NewPool(client)
	return &RedisLocker{
		rs:  redsync.New(pool),
		log: log.NewHelper(log.With(logger, "module", "services/locker")),
	}
}

func (l *RedisLocker) Lock(ctx context.Context, orderID string) (func(), error) {
	mutex := l.rs.NewMutex(
		orderLockKey(orderID),
		redsync.WithExpiry(orderLockExpiry),
		redsync.WithTries(orderLockTries),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return func() {}, fmt.Errorf("%w: %v", ErrLockBusy, err)
	}

	return func() {
		// The request context may already be done; unlock on a fresh one
		unlockCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if _, err := mutex.UnlockContext(unlockCtx); err != nil {
			l.log.Warnf("failed to unlock order %s: %v", orderID, err)
		}
	}, nil
}

// LocalLocker is an in-process locker used when no redis is configured
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker creates an in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, orderID string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[orderID]
	if !ok {
		lock = &localLock{ch: make(chan struct{}, 1)}
		l.locks[orderID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
		return func() {
			<-lock.ch
			l.done(orderID, lock)
		}, nil
	case <-ctx.Done():
		l.done(orderID, lock)
		return func() {}, fmt.Errorf("%w: %v", ErrLockBusy, ctx.Err())
	}
}

func (l *LocalLocker) done(orderID string, lock *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, orderID)
	}
}

func orderLockKey(orderID string) string {
	return "order_status_lock:" + orderID
}
