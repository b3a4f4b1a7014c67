// Package api provides the HTTP REST API server for crossasset.
//
// It exposes the catalog, stories and events, runs comparisons, serves the
// analytics computed on a comparison, and streams fetch progress over a
// WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/seenimoa/crossasset/internal/analytics"
	"github.com/seenimoa/crossasset/internal/catalog"
	"github.com/seenimoa/crossasset/internal/config"
	"github.com/seenimoa/crossasset/internal/pipeline"
	"github.com/seenimoa/crossasset/internal/transform"
)

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	runner   *pipeline.Runner
	wsHub    *WSHub
	gatherer prometheus.Gatherer
	log      zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Server) { s.log = l } }

// WithHub shares a hub that is already receiving fetch events.
func WithHub(h *WSHub) Option { return func(s *Server) { s.wsHub = h } }

// WithGatherer serves metrics from g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option { return func(s *Server) { s.gatherer = g } }

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, runner *pipeline.Runner, opts ...Option) *Server {
	srv := &Server{
		cfg:    cfg,
		runner: runner,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.wsHub == nil {
		srv.wsHub = NewWSHub()
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub { return s.wsHub }

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("api listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-done:
	}
	s.log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	timeout := s.cfg.API.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	// WebSocket is mounted outside the timeout middleware
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))

		r.Get("/health", s.handleHealth)
		r.Get("/config", s.handleGetConfig)

		// Catalog
		r.Get("/catalog", s.handleCatalog)
		r.Get("/stories", s.handleStories)
		r.Get("/events", s.handleEvents)

		// Comparison
		r.Post("/compare", s.handleCompare)
		r.Post("/export", s.handleExport)

		// Analytics on a comparison
		r.Post("/correlation", s.handleCorrelation)
		r.Post("/rolling", s.handleRolling)
		r.Post("/scatter", s.handleScatter)
		r.Post("/sensitivity", s.handleSensitivity)
		r.Post("/overlay", s.handleOverlay)
		r.Post("/summary", s.handleSummary)
		r.Post("/purchasing-power", s.handlePurchasingPower)
	})

	return r
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// ============================================================
// Response envelope
// ============================================================

// APIResponse is the standard JSON response wrapper.
type APIResponse struct {
	Success  bool     `json:"success"`
	Data     any      `json:"data,omitempty"`
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to write JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// writeFailure maps err onto a status code: request problems are 400, an
// empty result is 404 and anything else is 500.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	s.writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest),
		errors.Is(err, catalog.ErrUnknownSeries),
		errors.Is(err, analytics.ErrSameColumn),
		errors.Is(err, analytics.ErrTooFewFactors),
		errors.Is(err, transform.ErrUnknownColumn),
		errors.Is(err, errBadBody):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrNoData):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
