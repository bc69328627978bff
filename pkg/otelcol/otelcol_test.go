package otelcol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/fx/fxtest"

	"bantudesa/pkg/config"
)

func TestProvideWithoutEndpointUsesGlobals(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	p, err := Provide(lc, &config.Config{})
	require.NoError(t, err)
	require.Equal(t, otel.GetTracerProvider(), p.Tracer)
	require.Equal(t, otel.GetMeterProvider(), p.Meter)
}

func TestProvideTraceBatchesToExporter(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := ProvideTrace(exp)

	_, span := tp.Tracer("test").Start(context.Background(), "verify")
	span.End()
	require.NoError(t, tp.ForceFlush(context.Background()))

	// Shutdown resets the in-memory exporter, so read before it
	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "verify", spans[0].Name)

	require.NoError(t, tp.Shutdown(context.Background()))
	require.Empty(t, exp.GetSpans())
}

func TestProvideMetricReadsThroughReader(t *testing.T) {
	reader := metric.NewManualReader()
	mp := ProvideMetric(reader)

	counter, err := mp.Meter("test").Int64Counter("swept")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Equal(t, "swept", rm.ScopeMetrics[0].Metrics[0].Name)
}

func TestNewResourceCarriesServiceName(t *testing.T) {
	cfg := &config.Config{AppName: "bantudesa", AppEnv: "test"}
	res, err := NewResource(cfg)
	require.NoError(t, err)

	var found bool
	for _, kv := range res.Attributes() {
		if kv.Key == "service.name" && kv.Value.AsString() == "bantudesa" {
			found = true
		}
	}
	require.True(t, found)
}
