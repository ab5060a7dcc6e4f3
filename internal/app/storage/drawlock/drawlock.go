// Package drawlock implements a Redis-backed DrawLocker, an optional
// front-end for multi-process deployments where the Postgres lock row
// alone would require a round trip to the primary for every contention
// check.
package drawlock

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	rosterrors "github.com/R3E-Network/service_layer/infrastructure/errors"
)

const keyPrefix = "roster:draw-lock:"

// Lock is a Redis SETNX-with-TTL implementation of storage.DrawLocker.
type Lock struct {
	client *redis.Client
}

// New constructs a Redis-backed draw lock.
func New(client *redis.Client) *Lock {
	return &Lock{client: client}
}

// AcquireDrawLock takes the lock for eventID via SET NX PX, returning a
// release closure. now is accepted for interface parity with the Postgres
// implementation; Redis EXPIRE handles the TTL itself.
func (l *Lock) AcquireDrawLock(ctx context.Context, eventID string, now time.Time, ttl time.Duration) (func(context.Context), error) {
	key := keyPrefix + eventID
	ok, err := l.client.SetNX(ctx, key, now.UnixNano(), ttl).Result()
	if err != nil {
		return nil, rosterrors.NewUnavailable("draw lock backend unreachable", err)
	}
	if !ok {
		return nil, rosterrors.NewConflict("a draw is already in progress for this event")
	}
	release := func(releaseCtx context.Context) {
		_ = l.client.Del(releaseCtx, key).Err()
	}
	return release, nil
}
