package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTracerProvider(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	exp := tracetest.NewInMemoryExporter()
	tp := MustNewTracerProvider(
		WithServiceName("rawrepo-test"),
		WithSamplingRatio(1),
		WithSpanExporter(exp),
	)

	_, span := otel.Tracer("test").Start(context.Background(), "dump")
	TraceError(span, errors.New("cursor closed"))
	span.End()

	require.NoError(t, tp.ForceFlush(context.Background()))
	spans := exp.GetSpans()
	require.NoError(t, tp.Shutdown(context.Background()))

	require.Len(t, spans, 1)
	require.Equal(t, "dump", spans[0].Name)
	require.Equal(t, codes.Error, spans[0].Status.Code)
	require.Equal(t, "cursor closed", spans[0].Status.Description)
	require.Len(t, spans[0].Events, 1)

	var service string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	require.Equal(t, "rawrepo-test", service)
}

func TestZeroSamplingRatioDropsSpans(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	exp := tracetest.NewInMemoryExporter()
	tp := MustNewTracerProvider(WithSpanExporter(exp))

	_, span := otel.Tracer("test").Start(context.Background(), "dump")
	span.End()

	require.NoError(t, tp.ForceFlush(context.Background()))
	require.Empty(t, exp.GetSpans())
	require.NoError(t, tp.Shutdown(context.Background()))
}
