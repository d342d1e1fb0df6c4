package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/bsm/redislock"
)

// LeaseLocker hands out redislock leases. A lease the holder outlives simply expires.
type LeaseLocker struct {
	client *Client
}

var _ portsrepo.LeaseLocker = (*LeaseLocker)(nil)

func (l *LeaseLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	lock, err := l.client.locker.Obtain(ctx, l.client.key(key), ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("obtain lease %s: %w", key, err)
	}
	release := func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return fmt.Errorf("release lease %s: %w", key, err)
		}
		return nil
	}
	return release, true, nil
}
