package rosterapp

import (
	"context"
	"testing"
	"time"

	"github.com/R3E-Network/service_layer/internal/app/storage/memory"
)

func TestNewWiresAllFourServices(t *testing.T) {
	app, err := New(Deps{Store: memory.New()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if app.Registry == nil || app.Lottery == nil || app.Cascade == nil || app.Notify == nil {
		t.Fatal("expected all four services to be wired")
	}

	descs := app.Descriptors()
	if len(descs) != 4 {
		t.Fatalf("expected 4 descriptors, got %d: %#v", len(descs), descs)
	}
}

func TestStartStopRunsSweeperLifecycle(t *testing.T) {
	app, err := New(Deps{
		Store:           memory.New(),
		SweeperEnabled:  true,
		SweeperCron:     "@every 1h",
		SweeperBatchCap: 10,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := app.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestNewRejectsNilStore(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Fatal("expected error for nil store")
	}
}
