package rosterhttp

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/R3E-Network/service_layer/infrastructure/logging"
	"github.com/R3E-Network/service_layer/infrastructure/metrics"
	"github.com/R3E-Network/service_layer/infrastructure/middleware"
	"github.com/R3E-Network/service_layer/internal/app/rosterapp"
	"github.com/R3E-Network/service_layer/internal/app/system"
)

// Service exposes the roster REST API and fits the rosterapp lifecycle.
type Service struct {
	addr    string
	server  *http.Server
	handler http.Handler
	log     *logging.Logger
}

var _ system.Service = (*Service)(nil)

// NewService builds the HTTP service. m may be nil to disable request
// metrics (the /metrics endpoint is only mounted when m is non-nil).
func NewService(app *rosterapp.Application, addr string, log *logging.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logging.NewFromEnv("rosterd-http")
	}

	h := NewHandler(app)
	h = middleware.NewRecoveryMiddleware(log).Handler(h)
	if m != nil {
		h = middleware.MetricsMiddleware("rosterd", m)(h)
	}
	h = middleware.NewSecurityHeadersMiddleware(nil).Handler(h)
	h = middleware.NewCORSMiddleware(&middleware.CORSConfig{AllowedOrigins: []string{"*"}}).Handler(h)
	h = middleware.NewBodyLimitMiddleware(0).Handler(h)
	h = middleware.LoggingMiddleware(log)(h)

	if m != nil {
		top := http.NewServeMux()
		top.Handle("/metrics", promhttp.Handler())
		top.Handle("/", h)
		h = top
	}

	return &Service{addr: addr, handler: h, log: log}
}

func (s *Service) Name() string { return "roster-http" }

func (s *Service) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("http server error")
		}
	}()
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
