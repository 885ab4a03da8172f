// Package probe implements the request/delivery correlation engine: it
// registers outbound test messages, dispatches them without blocking,
// correlates provider webhook events back to pending tests, and exposes
// blocking-wait and batch-polling consumption of the results.
package probe

import (
	"time"

	"github.com/kart-io/smsprobe/observability"
	"github.com/kart-io/smsprobe/pkg/archive"
	"github.com/kart-io/smsprobe/pkg/config"
	"github.com/kart-io/smsprobe/pkg/logger"
	"github.com/kart-io/smsprobe/pkg/probe/registry"
	"github.com/kart-io/smsprobe/pkg/provider"
)

// Engine wires the correlation registry, the dispatcher, the event
// correlator, and the wait/poll façade together. The registry is the only
// state shared between them.
type Engine struct {
	config     *config.Config
	registry   *registry.Registry
	provider   provider.Provider
	archive    archive.Archive
	telemetry  *observability.Telemetry
	logger     logger.Logger
	dispatcher *Dispatcher
	correlator *Correlator
}

// Option customises the engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.logger = log
		}
	}
}

// WithArchive sets the terminal-result archive.
func WithArchive(a archive.Archive) Option {
	return func(e *Engine) {
		if a != nil {
			e.archive = a
		}
	}
}

// WithTelemetry sets the telemetry provider.
func WithTelemetry(t *observability.Telemetry) Option {
	return func(e *Engine) {
		e.telemetry = t
	}
}

// NewEngine creates an engine for the given provider.
func NewEngine(cfg *config.Config, prov provider.Provider, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}

	e := &Engine{
		config:   cfg,
		provider: prov,
		logger:   logger.Discard,
		archive:  archive.NewMemoryArchive(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	e.registry = registry.New(e.logger)
	e.dispatcher = NewDispatcher(e.registry, prov, e.telemetry, e.logger)
	e.correlator = NewCorrelator(e.registry, e.telemetry, e.logger)
	return e
}

// Registry exposes the correlation registry for inspection.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config {
	return e.config
}

// Provider returns the outbound message provider.
func (e *Engine) Provider() provider.Provider {
	return e.provider
}

// waitTimeout returns the single-test wait timeout for a message type.
func (e *Engine) waitTimeout(messageType provider.MessageType) time.Duration {
	if messageType == provider.TypeMMS {
		return e.config.MMSWaitTimeout
	}
	return e.config.SMSWaitTimeout
}
