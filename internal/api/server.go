// Package api exposes the reminder service over HTTP.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dosewise/dosewise/internal/config"
	"github.com/dosewise/dosewise/internal/metrics"
	"github.com/dosewise/dosewise/internal/tracker"
)

// Server handles the HTTP API.
type Server struct {
	app       *fiber.App
	config    *config.Config
	tracker   *tracker.Tracker
	doseLog   DoseHistory
	extractor LabelExtractor
	metrics   *metrics.Metrics
	logger    *zap.Logger
	clock     func() time.Time
}

// New creates the API server. History, enrichment, and metrics are
// optional; their endpoints answer 503 when absent.
func New(cfg *config.Config, tr *tracker.Tracker, logger *zap.Logger) *Server {
	readTimeout := cfg.Server.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30
	}
	writeTimeout := cfg.Server.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	s := &Server{
		app:     app,
		config:  cfg,
		tracker: tr,
		logger:  logger,
		clock:   time.Now,
	}

	s.setupRoutes()
	return s
}

// WithHistory attaches the dose log queried by the history endpoints.
func (s *Server) WithHistory(doseLog DoseHistory) *Server {
	s.doseLog = doseLog
	return s
}

// WithExtractor attaches the label-extraction provider.
func (s *Server) WithExtractor(extractor LabelExtractor) *Server {
	s.extractor = extractor
	return s
}

// WithMetrics attaches the collectors and registers the /metrics
// endpoint.
func (s *Server) WithMetrics(m *metrics.Metrics) *Server {
	s.metrics = m
	s.app.Get("/metrics", adaptor.HTTPHandler(
		promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))
	return s
}

// WithClock overrides the time source used for "now" in the reminder
// view. Tests use this to pin the clock.
func (s *Server) WithClock(clock func() time.Time) *Server {
	s.clock = clock
	return s
}

// App returns the underlying fiber app. Tests drive requests through it.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	s.logger.Info("HTTP server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}
