package locker

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned when the lease could not be taken before the
// caller's context expired.
var ErrNotAcquired = errors.New("lock not acquired")

// Lock is a held lease. Release is safe to call once.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker hands out short-lived mutual-exclusion leases keyed by an
// arbitrary string. The subscribe workflow uses one lease per account to
// serialize its check-then-act section.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}
