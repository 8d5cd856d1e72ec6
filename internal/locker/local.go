package locker

import (
	"context"
	"sync"
	"time"
)

// localLocker is the single-process fallback used when no redis address is
// configured. It provides the same serialization guarantee within one
// process only.
type localLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewLocal() Locker {
	return &localLocker{locks: make(map[string]chan struct{})}
}

func (l *localLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	for {
		l.mu.Lock()
		ch, held := l.locks[key]
		if !held {
			l.locks[key] = make(chan struct{})
			l.mu.Unlock()
			return &localLock{locker: l, key: key}, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ErrNotAcquired
		case <-ch:
		}
	}
}

type localLock struct {
	locker *localLocker
	key    string
	once   sync.Once
}

func (l *localLock) Release(ctx context.Context) error {
	l.once.Do(func() {
		l.locker.mu.Lock()
		if ch, ok := l.locker.locks[l.key]; ok {
			delete(l.locker.locks, l.key)
			close(ch)
		}
		l.locker.mu.Unlock()
	})
	return nil
}
