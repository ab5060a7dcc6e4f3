package system

import (
	"context"
	"fmt"

	core "github.com/R3E-Network/service_layer/internal/app/core/service"
)

// Manager owns the startup and shutdown order of every lifecycle-managed
// service registered with it. Services start in registration order and stop
// in reverse, so a service may assume anything it depends on is already
// running by the time Start is called on it.
type Manager struct {
	services []Service
	names    map[string]struct{}
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{names: make(map[string]struct{})}
}

// Register adds svc to the managed set. Registering two services under the
// same Name is rejected so descriptor collection stays unambiguous.
func (m *Manager) Register(svc Service) error {
	if svc == nil {
		return fmt.Errorf("system: cannot register a nil service")
	}
	name := svc.Name()
	if _, exists := m.names[name]; exists {
		return fmt.Errorf("system: service %q already registered", name)
	}
	m.names[name] = struct{}{}
	m.services = append(m.services, svc)
	return nil
}

// Start starts every registered service in registration order. If one fails,
// the services already started are stopped before Start returns the error.
func (m *Manager) Start(ctx context.Context) error {
	for i, svc := range m.services {
		if err := svc.Start(ctx); err != nil {
			m.stopFrom(ctx, i-1)
			return fmt.Errorf("start %s: %w", svc.Name(), err)
		}
	}
	return nil
}

// Stop stops every registered service in reverse registration order,
// collecting (not short-circuiting on) the first error encountered.
func (m *Manager) Stop(ctx context.Context) error {
	return m.stopFrom(ctx, len(m.services)-1)
}

func (m *Manager) stopFrom(ctx context.Context, last int) error {
	var firstErr error
	for i := last; i >= 0; i-- {
		if err := m.services[i].Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop %s: %w", m.services[i].Name(), err)
		}
	}
	return firstErr
}

// Descriptors collects descriptors from every registered service that also
// implements DescriptorProvider.
func (m *Manager) Descriptors() []core.Descriptor {
	providers := make([]DescriptorProvider, 0, len(m.services))
	for _, svc := range m.services {
		if p, ok := svc.(DescriptorProvider); ok {
			providers = append(providers, p)
		}
	}
	return CollectDescriptors(providers)
}

// NoopService is a placeholder Service for components that are managed
// outside the request path (e.g. read-only domain services with no
// background loop of their own) but still need a descriptor slot.
type NoopService struct {
	ServiceName string
	Desc        core.Descriptor
}

var _ Service = NoopService{}
var _ DescriptorProvider = NoopService{}

func (n NoopService) Name() string                  { return n.ServiceName }
func (n NoopService) Start(ctx context.Context) error { return nil }
func (n NoopService) Stop(ctx context.Context) error  { return nil }
func (n NoopService) Descriptor() core.Descriptor     { return n.Desc }
