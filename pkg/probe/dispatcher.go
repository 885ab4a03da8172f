package probe

import (
	"context"
	"time"

	"github.com/kart-io/smsprobe/observability"
	"github.com/kart-io/smsprobe/pkg/logger"
	"github.com/kart-io/smsprobe/pkg/probe/registry"
	"github.com/kart-io/smsprobe/pkg/provider"
)

// Dispatcher issues outbound sends as non-blocking units of work and applies
// the send outcome to the registry. It never blocks the caller beyond
// spawning the goroutine, and it never holds a registry lock across the
// provider call.
type Dispatcher struct {
	registry  *registry.Registry
	provider  provider.Provider
	telemetry *observability.Telemetry
	logger    logger.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(reg *registry.Registry, prov provider.Provider, tel *observability.Telemetry, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Discard
	}
	return &Dispatcher{
		registry:  reg,
		provider:  prov,
		telemetry: tel,
		logger:    log,
	}
}

// Dispatch issues the send in its own goroutine and returns immediately.
// The record for req.Tag must already exist in the registry. The send is
// detached from the caller's cancellation: a caller that times out and
// cleans up its record does not abort the in-flight provider call, whose
// late registry update then becomes a harmless no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, req *provider.SendRequest, messageType provider.MessageType) {
	go d.send(context.WithoutCancel(ctx), req, messageType)
}

func (d *Dispatcher) send(ctx context.Context, req *provider.SendRequest, messageType provider.MessageType) {
	ctx, span := d.telemetry.TraceSend(ctx, req.Tag, string(messageType))

	resp, err := d.provider.Send(ctx, req)
	acceptedAt := time.Now()

	if err != nil {
		d.telemetry.RecordSendFailed(ctx, string(messageType))
		// A send failure is terminal and synchronously knowable: no webhook
		// will ever arrive for it, so wake the waiter now.
		found := d.registry.Mutate(req.Tag, func(rec *registry.TestRecord) {
			if rec.MarkFailed(err.Error()) {
				rec.Signal()
			}
		})
		if !found {
			d.logger.Debug("Send failed for already-removed test", "tag", req.Tag)
		} else {
			d.logger.Warn("Send failed", "tag", req.Tag, "error", err)
		}
		observability.EndSpanWithError(span, err)
		return
	}

	found := d.registry.Mutate(req.Tag, func(rec *registry.TestRecord) {
		rec.MarkSent(resp.MessageID, acceptedAt)
	})
	if !found {
		// Caller timed out and cleaned up before the provider answered.
		d.logger.Debug("Provider accepted an already-removed test", "tag", req.Tag)
	} else {
		d.logger.Debug("Provider accepted send",
			"tag", req.Tag,
			"message_id", resp.MessageID)
	}
	observability.EndSpanWithError(span, nil)
}
