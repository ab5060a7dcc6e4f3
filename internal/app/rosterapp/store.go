package rosterapp

import (
	"context"
	"time"

	"github.com/R3E-Network/service_layer/internal/app/storage"
	"github.com/R3E-Network/service_layer/internal/app/storage/drawlock"
)

// withRedisLocker overrides a store's DrawLocker with a Redis-backed one
// while delegating every other Store method to the embedded base. Used when
// LOTTERY_DRAW_LOCK_BACKEND=redis is configured for multi-process
// deployments, where the Postgres lock row would cost a round trip to the
// primary on every contention check.
type withRedisLocker struct {
	storage.Store
	locker *drawlock.Lock
}

// WithRedisLocker wraps base so draw-lock acquisition goes to Redis instead
// of base's own implementation.
func WithRedisLocker(base storage.Store, locker *drawlock.Lock) storage.Store {
	return withRedisLocker{Store: base, locker: locker}
}

func (w withRedisLocker) AcquireDrawLock(ctx context.Context, eventID string, now time.Time, ttl time.Duration) (func(context.Context), error) {
	return w.locker.AcquireDrawLock(ctx, eventID, now, ttl)
}
