// Package observability wires OpenTelemetry tracing and metrics for smsprobe.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Config holds telemetry settings.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	OTLPHeaders    map[string]string
	SampleRate     float64
}

// Telemetry provides tracing and metrics for the probe engine.
type Telemetry struct {
	config        *Config
	tracer        trace.Tracer
	meter         metric.Meter
	traceProvider *sdktrace.TracerProvider

	testsStarted     metric.Int64Counter
	sendsFailed      metric.Int64Counter
	eventsReceived   metric.Int64Counter
	eventsUnmatched  metric.Int64Counter
	deliveryLatency  metric.Float64Histogram
	testsInFlight    metric.Int64UpDownCounter
}

// NewTelemetry creates a telemetry provider. With Enabled=false it returns a
// no-op provider backed by the global (noop by default) otel providers.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if cfg == nil {
		cfg = &Config{
			ServiceName:    "smsprobe",
			ServiceVersion: "1.0.0",
			Environment:    "development",
			OTLPEndpoint:   "localhost:4318",
			SampleRate:     1.0,
			Enabled:        false,
		}
	}

	t := &Telemetry{config: cfg}

	if !cfg.Enabled {
		t.tracer = otel.Tracer("smsprobe")
		t.meter = otel.Meter("smsprobe")
		return t, nil
	}

	if err := t.initTracing(); err != nil {
		return nil, fmt.Errorf("init tracing: %v", err)
	}
	if err := t.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %v", err)
	}
	return t, nil
}

func (t *Telemetry) initTracing() error {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(t.config.ServiceName),
			semconv.ServiceVersion(t.config.ServiceVersion),
			semconv.DeploymentEnvironment(t.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("create resource: %v", err)
	}

	exporter, err := otlptrace.New(context.Background(),
		otlptracehttp.NewClient(
			otlptracehttp.WithEndpoint(t.config.OTLPEndpoint),
			otlptracehttp.WithHeaders(t.config.OTLPHeaders),
		),
	)
	if err != nil {
		return fmt.Errorf("create exporter: %v", err)
	}

	t.traceProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(t.config.SampleRate)),
	)
	otel.SetTracerProvider(t.traceProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	t.tracer = otel.Tracer("smsprobe",
		trace.WithSchemaURL(semconv.SchemaURL),
	)
	return nil
}

func (t *Telemetry) initMetrics() error {
	t.meter = otel.Meter("smsprobe",
		metric.WithSchemaURL(semconv.SchemaURL),
	)

	var err error

	t.testsStarted, err = t.meter.Int64Counter(
		"smsprobe_tests_started_total",
		metric.WithDescription("Total number of test messages dispatched"),
	)
	if err != nil {
		return fmt.Errorf("create tests_started counter: %v", err)
	}

	t.sendsFailed, err = t.meter.Int64Counter(
		"smsprobe_sends_failed_total",
		metric.WithDescription("Total number of sends rejected by the provider"),
	)
	if err != nil {
		return fmt.Errorf("create sends_failed counter: %v", err)
	}

	t.eventsReceived, err = t.meter.Int64Counter(
		"smsprobe_webhook_events_total",
		metric.WithDescription("Total number of webhook events received"),
	)
	if err != nil {
		return fmt.Errorf("create webhook_events counter: %v", err)
	}

	t.eventsUnmatched, err = t.meter.Int64Counter(
		"smsprobe_webhook_events_unmatched_total",
		metric.WithDescription("Webhook events with no matching test record"),
	)
	if err != nil {
		return fmt.Errorf("create webhook_events_unmatched counter: %v", err)
	}

	t.deliveryLatency, err = t.meter.Float64Histogram(
		"smsprobe_delivery_latency_seconds",
		metric.WithDescription("End-to-end delivery latency of test messages"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create delivery_latency histogram: %v", err)
	}

	t.testsInFlight, err = t.meter.Int64UpDownCounter(
		"smsprobe_tests_in_flight",
		metric.WithDescription("Test records currently live in the registry"),
	)
	if err != nil {
		return fmt.Errorf("create tests_in_flight counter: %v", err)
	}

	return nil
}

// TraceSend creates a span around an outbound provider call.
func (t *Telemetry) TraceSend(ctx context.Context, testID string, messageType string) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "smsprobe.send",
		trace.WithAttributes(
			attribute.String("smsprobe.test.id", testID),
			attribute.String("smsprobe.message.type", messageType),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// RecordTestStarted counts a dispatched test and bumps the in-flight gauge.
func (t *Telemetry) RecordTestStarted(ctx context.Context, messageType string) {
	if t == nil {
		return
	}
	if t.testsStarted != nil {
		t.testsStarted.Add(ctx, 1, metric.WithAttributes(
			attribute.String("message_type", messageType),
		))
	}
	if t.testsInFlight != nil {
		t.testsInFlight.Add(ctx, 1)
	}
}

// RecordTestResolved decrements the in-flight gauge.
func (t *Telemetry) RecordTestResolved(ctx context.Context) {
	if t == nil || t.testsInFlight == nil {
		return
	}
	t.testsInFlight.Add(ctx, -1)
}

// RecordSendFailed counts a provider rejection.
func (t *Telemetry) RecordSendFailed(ctx context.Context, messageType string) {
	if t == nil || t.sendsFailed == nil {
		return
	}
	t.sendsFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("message_type", messageType),
	))
}

// RecordWebhookEvent counts a webhook event and whether it matched a record.
func (t *Telemetry) RecordWebhookEvent(ctx context.Context, eventType string, matched bool) {
	if t == nil {
		return
	}
	if t.eventsReceived != nil {
		t.eventsReceived.Add(ctx, 1, metric.WithAttributes(
			attribute.String("event_type", eventType),
		))
	}
	if !matched && t.eventsUnmatched != nil {
		t.eventsUnmatched.Add(ctx, 1, metric.WithAttributes(
			attribute.String("event_type", eventType),
		))
	}
}

// RecordDeliveryLatency records an observed end-to-end latency.
func (t *Telemetry) RecordDeliveryLatency(ctx context.Context, messageType string, latency time.Duration) {
	if t == nil || t.deliveryLatency == nil {
		return
	}
	t.deliveryLatency.Record(ctx, latency.Seconds(), metric.WithAttributes(
		attribute.String("message_type", messageType),
	))
}

// EndSpanWithError finalizes a span, marking it failed when err is non-nil.
func EndSpanWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Shutdown flushes and stops the trace provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.traceProvider == nil {
		return nil
	}
	return t.traceProvider.Shutdown(ctx)
}
