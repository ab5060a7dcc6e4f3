package drawlock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	rosterrors "github.com/R3E-Network/service_layer/infrastructure/errors"
)

// TestAcquireDrawLockRejectsOverlap requires a reachable Redis instance; it
// checks for the same Conflict-class rejection of an overlapping draw that
// the Postgres and in-memory DrawLockers return.
func TestAcquireDrawLockRejectsOverlap(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping Redis integration")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	lock := New(client)
	now := time.Now()

	release, err := lock.AcquireDrawLock(ctx, "evt-lock-test", now, time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release(ctx)

	_, err = lock.AcquireDrawLock(ctx, "evt-lock-test", now, time.Minute)
	if !rosterrors.IsServiceError(err) || rosterrors.ClassOf(err) != rosterrors.Conflict {
		t.Fatalf("expected Conflict on overlapping acquire, got %v", err)
	}

	release(ctx)
	if _, err := lock.AcquireDrawLock(ctx, "evt-lock-test", now, time.Minute); err != nil {
		t.Fatalf("expected reacquire after release to succeed, got %v", err)
	}
	_ = client.Del(ctx, keyPrefix+"evt-lock-test")
}
