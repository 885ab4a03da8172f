package probe

import (
	"context"
	"time"

	"github.com/kart-io/smsprobe/observability"
	"github.com/kart-io/smsprobe/pkg/logger"
	"github.com/kart-io/smsprobe/pkg/probe/registry"
	"github.com/kart-io/smsprobe/pkg/provider"
)

// Correlator matches provider webhook events to pending test records and
// applies state transitions. Events for unknown tags are expected noise
// (expired, removed, or foreign tests) and are dropped silently.
type Correlator struct {
	registry  *registry.Registry
	telemetry *observability.Telemetry
	logger    logger.Logger
}

// NewCorrelator creates a correlator.
func NewCorrelator(reg *registry.Registry, tel *observability.Telemetry, log logger.Logger) *Correlator {
	if log == nil {
		log = logger.Discard
	}
	return &Correlator{
		registry:  reg,
		telemetry: tel,
		logger:    log,
	}
}

// HandleEvents processes a webhook batch. Each event is handled
// independently: a malformed or unmatched event never aborts the rest of
// the batch.
func (c *Correlator) HandleEvents(ctx context.Context, events []provider.Event) {
	for i := range events {
		c.handleEvent(ctx, &events[i])
	}
}

func (c *Correlator) handleEvent(ctx context.Context, ev *provider.Event) {
	tag := ev.CorrelationTag()
	if ev.Type == "" || tag == "" {
		c.logger.Debug("Dropping malformed webhook event", "type", ev.Type)
		c.telemetry.RecordWebhookEvent(ctx, ev.Type, false)
		return
	}

	// Prefer the provider-reported event time; fall back to arrival time.
	at := ev.Time
	if at.IsZero() {
		at = time.Now()
	}

	var (
		deliveredNow bool
		latency      time.Duration
		messageType  provider.MessageType
	)

	matched := c.registry.Mutate(tag, func(rec *registry.TestRecord) {
		switch ev.Type {
		case provider.EventMessageSending:
			rec.MarkCarrierAccepted(at)

		case provider.EventMessageDelivered:
			if rec.MarkDelivered(at) {
				rec.Signal()
				if rec.LatencyKnown {
					deliveredNow = true
					latency = rec.Latency
					messageType = rec.MessageType
				}
			}

		case provider.EventMessageFailed:
			detail := ev.Description
			if detail == "" {
				detail = "delivery failed"
			}
			if rec.MarkFailed(detail) {
				rec.Signal()
			}

		default:
			// Other event types (inbound messages etc.) are not ours.
		}
	})

	c.telemetry.RecordWebhookEvent(ctx, ev.Type, matched)
	if !matched {
		c.logger.Debug("Webhook event for unknown tag", "tag", tag, "type", ev.Type)
		return
	}
	if deliveredNow {
		c.telemetry.RecordDeliveryLatency(ctx, string(messageType), latency)
	}
}
