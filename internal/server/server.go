// Package server exposes allocation runs over HTTP.
//
// The server owns one floor plan, loaded at start. Every POST to
// /v1/allocations runs the posted projects against it through a
// [pipeline.Runner], so runs share the runner's cache and are serialised by
// its run lock: a request that finds the floor plan busy gets 409.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/boothplan/pkg/config"
	errs "github.com/matzehuels/boothplan/pkg/errors"
	"github.com/matzehuels/boothplan/pkg/metrics"
	"github.com/matzehuels/boothplan/pkg/pipeline"
)

const (
	defaultMaxBody   = 4 << 20
	defaultTimeout   = 60 * time.Second
	shutdownDeadline = 10 * time.Second
)

// Config holds the server's collaborators.
type Config struct {
	FloorPlan *config.FloorPlan
	Runner    *pipeline.Runner

	// LockKey names the floor plan for the run lock. Empty means the
	// plan's hash.
	LockKey string

	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	Logger *log.Logger

	// MaxBodyBytes caps request bodies. Zero means 4 MiB.
	MaxBodyBytes int64

	// Timeout bounds one request. Zero means one minute.
	Timeout time.Duration
}

// Server is the HTTP surface. Create it with New.
type Server struct {
	plan     *config.FloorPlan
	runner   *pipeline.Runner
	lockKey  string
	gatherer prometheus.Gatherer
	logger   *log.Logger
	maxBody  int64
	timeout  time.Duration
	router   chi.Router
}

// New validates the floor plan and builds the router.
func New(cfg Config) (*Server, error) {
	if cfg.FloorPlan == nil {
		return nil, errs.New(errs.ErrCodeInvalidConfig, "server needs a floor plan")
	}
	if err := cfg.FloorPlan.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		plan:     cfg.FloorPlan,
		runner:   cfg.Runner,
		lockKey:  cfg.LockKey,
		gatherer: cfg.Gatherer,
		logger:   cfg.Logger,
		maxBody:  cfg.MaxBodyBytes,
		timeout:  cfg.Timeout,
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, nil, nil, cfg.Logger)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.maxBody <= 0 {
		s.maxBody = defaultMaxBody
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(s.gatherer))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/floorplan", s.handleFloorPlan)
		r.Post("/allocations", s.handleAllocate)
	})
	return r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownDeadline)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
