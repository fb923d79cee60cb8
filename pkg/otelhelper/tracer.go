// Package otelhelper provides tracing for conversion requests.
package otelhelper

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Span attribute keys.
const (
	ConversionIDKey   = "flowbridge.conversion.id"
	WorkflowNameKey   = "flowbridge.workflow.name"
	SourceFilenameKey = "flowbridge.source.filename"
	StageKey          = "flowbridge.stage"
	ModuleCountKey    = "flowbridge.module.count"
	NodeCountKey      = "flowbridge.node.count"
	UnmappedCountKey  = "flowbridge.unmapped.count"
	WarningCountKey   = "flowbridge.warning.count"
	UnconvertibleKey  = "flowbridge.unconvertible.count"
	ArchiveBackendKey = "flowbridge.archive.backend"
	EventTypeKey      = "flowbridge.event.type"
)

// ShutdownFunc flushes buffered spans and releases the exporter.
type ShutdownFunc func(context.Context) error

// Tracer returns a tracer exporting over OTLP/HTTP when enabled, and a no-op tracer
// otherwise. The exporter reads the standard OTEL_EXPORTER_OTLP_* variables.
//
// nolint:ireturn // trace.Tracer is the OpenTelemetry API
func Tracer(ctx context.Context, serviceName string, enabled bool) (trace.Tracer, ShutdownFunc, error) {
	if !enabled {
		return noop.NewTracerProvider().Tracer(serviceName), func(context.Context) error { return nil }, nil
	}

	provider, err := newTracerProvider(ctx, serviceName)
	if err != nil {
		return nil, nil, err
	}

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return provider.Tracer(serviceName), provider.Shutdown, nil
}

// nolint:ireturn,spancheck // callers end the span
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func newTracerProvider(ctx context.Context, serviceName string) (*sdktrace.TracerProvider, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	), nil
}
