package probe

import (
	"context"
	"time"

	"github.com/kart-io/smsprobe/pkg/config"
	"github.com/kart-io/smsprobe/pkg/errors"
	"github.com/kart-io/smsprobe/pkg/probe/registry"
	"github.com/kart-io/smsprobe/pkg/provider"
	"github.com/kart-io/smsprobe/pkg/report"
	"github.com/kart-io/smsprobe/pkg/utils/idgen"
)

// SingleSpec describes a one-off test message.
type SingleSpec struct {
	Source      config.SourceNumber
	Destination string
	Carrier     string
	MessageType provider.MessageType
	Body        string
}

// HandleEvents forwards a webhook batch to the correlator.
func (e *Engine) HandleEvents(ctx context.Context, events []provider.Event) {
	e.correlator.HandleEvents(ctx, events)
}

// RunSingleTest dispatches one test message and blocks until it reaches a
// terminal state or the message-type timeout elapses. The record is removed
// from the registry on every exit path; any webhook arriving afterwards is
// dropped silently by the correlator.
//
// The returned result is always non-nil when err is a test outcome error
// (failed or timed out), so callers get the partial timeline either way.
func (e *Engine) RunSingleTest(ctx context.Context, spec SingleSpec) (*report.TestResult, error) {
	if !spec.MessageType.Valid() {
		return nil, errors.Newf(errors.ErrInvalidConfig, "unknown message type %q", spec.MessageType)
	}
	if spec.Destination == "" {
		return nil, errors.New(errors.ErrInvalidConfig, "destination is required")
	}

	id := idgen.SingleTestID()
	rec := registry.NewSingleRecord(id, spec.MessageType)
	rec.Source = spec.Source.Number
	rec.SourceName = spec.Source.Name
	rec.Destination = spec.Destination
	rec.Carrier = spec.Carrier

	if err := e.registry.Create(rec); err != nil {
		return nil, err
	}
	e.telemetry.RecordTestStarted(ctx, string(spec.MessageType))
	e.logger.Info("Single test started",
		"test_id", id,
		"type", spec.MessageType,
		"destination", spec.Destination)

	e.dispatcher.Dispatch(ctx, e.buildSendRequest(&spec, id), spec.MessageType)

	timeout := e.waitTimeout(spec.MessageType)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-rec.Done():
	case <-timer.C:
	case <-ctx.Done():
		e.registry.Remove(id)
		e.telemetry.RecordTestResolved(ctx)
		return nil, ctx.Err()
	}

	removed := e.registry.Remove(id)
	e.telemetry.RecordTestResolved(ctx)
	if removed == nil {
		// Only reachable if something else deleted the record, which no
		// component is allowed to do.
		return nil, errors.Newf(errors.ErrTestNotFound, "test %s vanished from registry", id)
	}

	result, err := e.resolveSingle(removed, timeout)
	if archiveErr := e.archive.StoreTest(ctx, result); archiveErr != nil {
		e.logger.Warn("Failed to archive test result", "test_id", id, "error", archiveErr)
	}
	return result, err
}

// resolveSingle classifies the removed record into an outcome per the
// timeout/degradation policy.
func (e *Engine) resolveSingle(rec *registry.TestRecord, timeout time.Duration) (*report.TestResult, error) {
	result := &report.TestResult{
		TestID:            rec.ID,
		MessageType:       rec.MessageType,
		ProviderMessageID: rec.ProviderMessageID,
		ErrorDetail:       rec.ErrorDetail,
		Timeline:          buildTimeline(rec),
	}

	switch {
	case rec.Status == registry.StatusDelivered:
		result.Outcome = report.OutcomeDelivered
		e.logger.Info("Single test delivered",
			"test_id", rec.ID,
			"latency", rec.Latency)
		return result, nil

	case rec.Status == registry.StatusFailed:
		result.Outcome = report.OutcomeFailed
		code := errors.ErrTestFailed
		if rec.SentAt.IsZero() {
			// The provider rejected the send synchronously.
			code = errors.ErrSendFailed
		}
		return result, errors.New(code, rec.ErrorDetail)

	case rec.Status == registry.StatusSent && rec.MessageType == provider.TypeMMS:
		// Media confirmations are known to be slow or absent; a sent but
		// unconfirmed media message is a degraded success, not an error.
		result.Outcome = report.OutcomeSentUnconfirmed
		e.logger.Info("Single test sent but unconfirmed", "test_id", rec.ID)
		return result, nil

	default:
		result.Outcome = report.OutcomeTimedOut
		return result, errors.Newf(errors.ErrTestTimeout,
			"TIMEOUT: No final webhook was received after %d seconds", int(timeout.Seconds()))
	}
}

func (e *Engine) buildSendRequest(spec *SingleSpec, tag string) *provider.SendRequest {
	req := &provider.SendRequest{
		From:          spec.Source.Number,
		To:            spec.Destination,
		Body:          spec.Body,
		ApplicationID: spec.Source.ApplicationID,
		Tag:           tag,
	}
	if spec.MessageType == provider.TypeMMS && e.config.MediaURL != "" {
		req.MediaURLs = []string{e.config.MediaURL}
	}
	return req
}

// buildTimeline derives the per-leg latency breakdown from a record.
func buildTimeline(rec *registry.TestRecord) report.Timeline {
	tl := report.Timeline{
		SentAt:            rec.SentAt,
		CarrierAcceptedAt: rec.CarrierAcceptedAt,
		DeliveredAt:       rec.DeliveredAt,
		LatencyKnown:      rec.LatencyKnown,
	}
	if !rec.SentAt.IsZero() && !rec.CarrierAcceptedAt.IsZero() {
		tl.Leg1Latency = rec.CarrierAcceptedAt.Sub(rec.SentAt)
	}
	if !rec.DeliveredAt.IsZero() && !rec.CarrierAcceptedAt.IsZero() {
		tl.Leg2Latency = rec.DeliveredAt.Sub(rec.CarrierAcceptedAt)
	}
	if rec.LatencyKnown {
		tl.TotalLatency = rec.Latency
	}
	return tl
}
