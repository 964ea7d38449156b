// Package roundlock keeps allocation rounds from overlapping. The Redis lock
// covers several API replicas; the local lock covers a single process.
package roundlock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/yigit/seatallot/internal/pkg/apperrors"
)

// ReleaseFunc gives the lock back
type ReleaseFunc func(ctx context.Context) error

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another holder is never deleted by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the key's TTL only while it still holds our token
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLock is a single-key Redis mutex. While held, the key's TTL is
// extended every ttl/3, so the TTL only bounds how long a crashed holder
// keeps the lock, not how long a round may run.
type RedisLock struct {
	client       redis.UniversalClient
	prefix       string
	ttl          time.Duration
	refreshEvery time.Duration
}

// NewRedisLock creates a lock; keys are namespaced with prefix
func NewRedisLock(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisLock{client: client, prefix: prefix, ttl: ttl, refreshEvery: ttl / 3}
}

// Acquire takes the named lock or fails with apperrors.ErrRoundInProgress
func (l *RedisLock) Acquire(ctx context.Context, name string) (ReleaseFunc, error) {
	key := l.prefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !ok {
		return nil, apperrors.ErrRoundInProgress
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go l.keepAlive(key, token, stop, stopped)

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() {
			close(stop)
			<-stopped
		})
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("redis unlock %s: %w", key, err)
		}
		return nil
	}, nil
}

// keepAlive extends the key until stop is closed or the key is no longer ours
func (l *RedisLock) keepAlive(key, token string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(l.refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.refreshEvery)
			n, err := refreshScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
			cancel()
			if err == nil && n == 0 {
				// Expired and possibly taken by someone else
				return
			}
		}
	}
}

// LocalLock is the in-process fallback used when Redis is disabled
type LocalLock struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalLock creates an in-process lock
func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(map[string]bool)}
}

// Acquire takes the named lock or fails with apperrors.ErrRoundInProgress
func (l *LocalLock) Acquire(_ context.Context, name string) (ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return nil, apperrors.ErrRoundInProgress
	}
	l.held[name] = true

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
