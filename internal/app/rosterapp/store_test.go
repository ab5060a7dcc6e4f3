package rosterapp

import (
	"context"
	"testing"
	"time"

	rosterrors "github.com/R3E-Network/service_layer/infrastructure/errors"
	"github.com/R3E-Network/service_layer/internal/app/storage/memory"
)

func TestWithRedisLockerDelegatesNonLockCalls(t *testing.T) {
	base := memory.New()
	wrapped := WithRedisLocker(base, nil)

	ctx := context.Background()
	if _, err := wrapped.GetEvent(ctx, "missing"); rosterrors.ClassOf(err) != rosterrors.NotFound {
		t.Fatalf("expected delegated NotFound, got %v", err)
	}
	_ = time.Now()
}
