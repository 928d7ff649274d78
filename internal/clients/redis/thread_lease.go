package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

// ThreadLease serializes turns per (tenant_id, thread_id): a second message
// for the same thread waits until the first turn's checkpoint write has
// finished. The lease is held for the duration of one turn only, never across
// turns.
type ThreadLease interface {
	// Acquire blocks until the lease is held or ctx is done. The returned
	// release func is safe to call more than once.
	Acquire(ctx context.Context, tenantID, threadID string) (release func(), err error)
}

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0
`

type redisThreadLease struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewThreadLease builds the Redis-backed lease. ttl bounds how long a crashed
// holder can block a thread.
func NewThreadLease(log *logger.Logger, rdb *goredis.Client, ttl time.Duration) (ThreadLease, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &redisThreadLease{
		log: log.With("service", "RedisThreadLease"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func leaseKey(tenantID, threadID string) string {
	return "convoroute:turn_lease:" + tenantID + ":" + threadID
}

func (l *redisThreadLease) Acquire(ctx context.Context, tenantID, threadID string) (func(), error) {
	key := leaseKey(tenantID, threadID)
	token := uuid.New().String()

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lease acquire: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// Token check so an expired lease re-acquired by another turn is
			// never released by us.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := l.rdb.Eval(rctx, releaseScript, []string{key}, token).Err(); err != nil {
				l.log.Warn("lease release failed", "key", key, "error", err)
			}
		})
	}
	return release, nil
}

// localThreadLease is the in-process fallback used when Redis is not
// configured. Correct for a single process only. Entries are ref-counted and
// evicted once the last holder or waiter is gone, so the map stays bounded by
// the number of in-flight turns.
type localThreadLease struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocalThreadLease() ThreadLease {
	return &localThreadLease{locks: map[string]*localLock{}}
}

func (l *localThreadLease) Acquire(ctx context.Context, tenantID, threadID string) (func(), error) {
	key := leaseKey(tenantID, threadID)
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &localLock{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	put := func() {
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}

	acquired := make(chan struct{})
	go func() {
		e.mu.Lock()
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-ctx.Done():
		// The goroutine will eventually get the mutex; release it then.
		go func() {
			<-acquired
			e.mu.Unlock()
			put()
		}()
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			put()
		})
	}, nil
}
