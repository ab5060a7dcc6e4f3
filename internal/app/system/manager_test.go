package system

import (
	"context"
	"errors"
	"testing"

	core "github.com/R3E-Network/service_layer/internal/app/core/service"
)

type fakeService struct {
	name      string
	startErr  error
	stopErr   error
	started   *[]string
	stopped   *[]string
}

func (f fakeService) Name() string { return f.name }

func (f fakeService) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	*f.started = append(*f.started, f.name)
	return nil
}

func (f fakeService) Stop(ctx context.Context) error {
	*f.stopped = append(*f.stopped, f.name)
	return f.stopErr
}

func TestManagerStartStopOrder(t *testing.T) {
	var started, stopped []string
	m := NewManager()
	for _, name := range []string{"a", "b", "c"} {
		if err := m.Register(fakeService{name: name, started: &started, stopped: &stopped}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := started; len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("unexpected start order: %v", got)
	}

	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := stopped; len(got) != 3 || got[0] != "c" || got[2] != "a" {
		t.Fatalf("unexpected stop order: %v", got)
	}
}

func TestManagerStartFailureStopsStartedServices(t *testing.T) {
	var started, stopped []string
	m := NewManager()
	failing := errors.New("boom")
	_ = m.Register(fakeService{name: "a", started: &started, stopped: &stopped})
	_ = m.Register(fakeService{name: "b", startErr: failing, started: &started, stopped: &stopped})
	_ = m.Register(fakeService{name: "c", started: &started, stopped: &stopped})

	err := m.Start(context.Background())
	if err == nil {
		t.Fatal("expected start error")
	}
	if len(started) != 1 || started[0] != "a" {
		t.Fatalf("expected only 'a' to have started, got %v", started)
	}
	if len(stopped) != 1 || stopped[0] != "a" {
		t.Fatalf("expected 'a' to be rolled back, got %v", stopped)
	}
}

func TestManagerRejectsDuplicateNames(t *testing.T) {
	var started, stopped []string
	m := NewManager()
	if err := m.Register(fakeService{name: "dup", started: &started, stopped: &stopped}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(fakeService{name: "dup", started: &started, stopped: &stopped}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestManagerDescriptors(t *testing.T) {
	var started, stopped []string
	m := NewManager()
	_ = m.Register(fakeService{name: "a", started: &started, stopped: &stopped})
	_ = m.Register(NoopService{ServiceName: "b", Desc: core.Descriptor{Name: "b", Layer: core.LayerEngine}})

	descs := m.Descriptors()
	if len(descs) != 1 || descs[0].Name != "b" {
		t.Fatalf("expected only NoopService to contribute a descriptor, got %#v", descs)
	}
}
