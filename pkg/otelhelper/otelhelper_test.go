package otelhelper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/flowbridge/pkg/otelhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracer_Disabled(t *testing.T) {
	t.Parallel()

	tracer, shutdown, err := otelhelper.Tracer(context.Background(), "flowbridge-test", false)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := otelhelper.StartSpan(context.Background(), tracer, "noop")
	defer span.End()

	assert.False(t, span.SpanContext().IsValid())
}

func TestSetError(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := otelhelper.StartSpan(context.Background(), provider.Tracer("test"), "convert",
		attribute.String(otelhelper.StageKey, "map"))
	otelhelper.SetError(span, errors.New("boom"), attribute.String(otelhelper.ConversionIDKey, "c-1"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "convert", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "boom", ended[0].Status().Description)
	assert.Contains(t, ended[0].Attributes(), attribute.String(otelhelper.StageKey, "map"))
	assert.Contains(t, ended[0].Attributes(), attribute.String(otelhelper.ConversionIDKey, "c-1"))

	names := make([]string, 0, len(ended[0].Events()))
	for _, event := range ended[0].Events() {
		names = append(names, event.Name)
	}

	assert.Contains(t, names, "exception")
}

func TestSetError_NilErrorIsIgnored(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := otelhelper.StartSpan(context.Background(), provider.Tracer("test"), "convert")
	otelhelper.SetError(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
	assert.Empty(t, ended[0].Events())
}
