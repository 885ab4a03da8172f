// Package http implements the HTTP surface of smsprobe: the provider
// webhook sink and the status query endpoints used by external callers.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/kart-io/smsprobe/pkg/config"
	"github.com/kart-io/smsprobe/pkg/logger"
	"github.com/kart-io/smsprobe/pkg/probe"
	"github.com/kart-io/smsprobe/transport/http/handlers"
)

// Server hosts the webhook sink and the status query surface.
type Server struct {
	engine *probe.Engine
	server *http.Server
	addr   string
	logger logger.Logger
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewServer creates an HTTP server for the engine.
func NewServer(engine *probe.Engine, cfg *ServerConfig, log logger.Logger) *Server {
	if cfg == nil {
		cfg = &ServerConfig{}
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Single-test requests block until delivery or timeout, so the
		// write timeout must exceed the longest wait timeout.
		cfg.WriteTimeout = engine.Config().SMSWaitTimeout + 30*time.Second
	}
	if log == nil {
		log = logger.Discard
	}

	s := &Server{
		engine: engine,
		addr:   cfg.Addr,
		logger: log,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.server = &http.Server{
		Addr:           cfg.Addr,
		Handler:        mux,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
	return s
}

// registerRoutes registers HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	webhookHandler := handlers.NewWebhookHandler(s.engine, s.logger)
	testHandler := handlers.NewTestHandler(s.engine, s.logger)
	batchHandler := handlers.NewBatchHandler(s.engine, s.logger)
	healthHandler := handlers.NewHealthHandler(s.engine)

	mux.HandleFunc("POST /webhook", webhookHandler.Handle)
	mux.HandleFunc("POST /tests", testHandler.Handle)
	mux.HandleFunc("POST /batches", batchHandler.HandleStart)
	mux.HandleFunc("GET /batches/{id}", batchHandler.HandleStatus)
	mux.HandleFunc("GET /health", healthHandler.Handle)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// MatrixFromConfig builds the full batch matrix from configuration.
func MatrixFromConfig(cfg *config.Config) probe.BatchSpec {
	return probe.BatchSpec{
		Sources:      cfg.Sources,
		Destinations: cfg.Destinations,
		MessageTypes: handlers.DefaultMessageTypes(),
	}
}
