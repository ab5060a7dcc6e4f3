// Package rosterapp wires the four lottery services (Event Registry, Lottery
// Engine, Cascade Manager, Notification Broadcaster) into a single
// lifecycle-managed application, mirroring the way the platform's other
// entrypoints compose their services through internal/app/system.
package rosterapp

import (
	"context"
	"fmt"
	"time"

	core "github.com/R3E-Network/service_layer/internal/app/core/service"
	"github.com/R3E-Network/service_layer/internal/app/services/cascade"
	"github.com/R3E-Network/service_layer/internal/app/services/lottery"
	"github.com/R3E-Network/service_layer/internal/app/services/notify"
	"github.com/R3E-Network/service_layer/internal/app/services/registry"
	"github.com/R3E-Network/service_layer/internal/app/storage"
	"github.com/R3E-Network/service_layer/internal/app/system"
	"github.com/R3E-Network/service_layer/infrastructure/logging"
	"github.com/R3E-Network/service_layer/infrastructure/metrics"
)

// Deps captures the dependencies rosterapp needs to assemble; every field
// except Store is optional and falls back to a safe default.
type Deps struct {
	Store   storage.Store
	QR      *registry.QRCodec
	Sender  notify.Sender
	Log     *logging.Logger
	Metrics *metrics.Metrics

	ResponseWindow  time.Duration
	SweeperEnabled  bool
	SweeperCron     string
	SweeperBatchCap int
}

// Application ties the lottery domain services together and manages their
// lifecycle (currently: just the deadline sweeper has a background loop;
// the rest are invoked synchronously from the HTTP layer).
type Application struct {
	manager *system.Manager
	log     *logging.Logger

	Registry *registry.Service
	Lottery  *lottery.Service
	Cascade  *cascade.Service
	Notify   *notify.Broadcaster

	descriptors []core.Descriptor
}

// New builds a fully wired Application from deps.
func New(deps Deps) (*Application, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("rosterapp: a Store is required")
	}
	log := deps.Log
	if log == nil {
		log = logging.NewFromEnv("rosterd")
	}
	sender := deps.Sender
	if sender == nil {
		sender = notify.NewLogSender(log)
	}
	responseWindow := deps.ResponseWindow
	if responseWindow <= 0 {
		responseWindow = 7 * 24 * time.Hour
	}

	registrySvc := registry.New(deps.Store, deps.QR, log)
	lotterySvc := lottery.New(deps.Store, log, responseWindow)
	cascadeSvc := cascade.New(deps.Store, log)
	notifySvc := notify.New(deps.Store, sender, log)

	if deps.Metrics != nil {
		registrySvc.SetMetrics(deps.Metrics)
		lotterySvc.SetMetrics(deps.Metrics)
		cascadeSvc.SetMetrics(deps.Metrics)
		notifySvc.SetMetrics(deps.Metrics)
	}

	manager := system.NewManager()
	for _, svc := range []system.Service{
		system.NoopService{ServiceName: "event-registry", Desc: registrySvc.Descriptor()},
		system.NoopService{ServiceName: "cascade-manager", Desc: cascadeSvc.Descriptor()},
		system.NoopService{ServiceName: "notification-broadcaster", Desc: notifySvc.Descriptor()},
	} {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	if deps.SweeperEnabled {
		batchCap := deps.SweeperBatchCap
		if batchCap <= 0 {
			batchCap = storage.MaxBatchSize
		}
		cronExpr := deps.SweeperCron
		if cronExpr == "" {
			cronExpr = "@every 5m"
		}
		sweeper, err := lottery.NewSweeper(lotterySvc, cronExpr, batchCap)
		if err != nil {
			return nil, fmt.Errorf("build deadline sweeper: %w", err)
		}
		if err := manager.Register(newSweeperService(sweeper, lotterySvc.Descriptor())); err != nil {
			return nil, fmt.Errorf("register deadline sweeper: %w", err)
		}
	} else {
		if err := manager.Register(system.NoopService{ServiceName: "lottery-engine", Desc: lotterySvc.Descriptor()}); err != nil {
			return nil, fmt.Errorf("register lottery-engine: %w", err)
		}
	}

	return &Application{
		manager:     manager,
		log:         log,
		Registry:    registrySvc,
		Lottery:     lotterySvc,
		Cascade:     cascadeSvc,
		Notify:      notifySvc,
		descriptors: manager.Descriptors(),
	}, nil
}

// Attach registers an additional lifecycle-managed service, such as the HTTP
// server. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services in registration order.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services in reverse registration order.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

// Descriptors returns the descriptors advertised by every wired service.
func (a *Application) Descriptors() []core.Descriptor {
	out := make([]core.Descriptor, len(a.descriptors))
	copy(out, a.descriptors)
	return out
}

// sweeperService adapts *lottery.Sweeper to system.Service.
type sweeperService struct {
	sweeper *lottery.Sweeper
	desc    core.Descriptor
}

func newSweeperService(sweeper *lottery.Sweeper, desc core.Descriptor) *sweeperService {
	return &sweeperService{sweeper: sweeper, desc: desc}
}

func (s *sweeperService) Name() string { return "lottery-deadline-sweeper" }

func (s *sweeperService) Start(ctx context.Context) error {
	s.sweeper.Start()
	return nil
}

func (s *sweeperService) Stop(ctx context.Context) error {
	done := s.sweeper.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *sweeperService) Descriptor() core.Descriptor { return s.desc }
