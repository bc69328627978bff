package otelcol

import (
	"context"
	"errors"
	"time"

	"bantudesa/pkg/config"
	"bantudesa/pkg/otelcol/exporters"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("otelcol", fx.Provide(Provide))

func defaultTraceProviderOption() []trace.TracerProviderOption {
	return []trace.TracerProviderOption{
		trace.WithResource(resource.Default()),
	}
}

func ProvideTrace(exporter trace.SpanExporter, opts ...trace.TracerProviderOption) *trace.TracerProvider {
	if len(opts) == 0 {
		opts = defaultTraceProviderOption()
	}

	opts = append(opts, trace.WithBatcher(exporter))

	return trace.NewTracerProvider(opts...)
}

func defaultMetricProviderOption() []metric.Option {
	return []metric.Option{
		metric.WithResource(resource.Default()),
	}
}

func ProvideMetric(reader metric.Reader, opts ...metric.Option) *metric.MeterProvider {
	if len(opts) == 0 {
		opts = defaultMetricProviderOption()
	}

	opts = append(opts, metric.WithReader(reader))

	return metric.NewMeterProvider(opts...)
}

type Providers struct {
	fx.Out
	Tracer oteltrace.TracerProvider
	Meter  otelmetric.MeterProvider
}

// NewResource tags telemetry with the service identity from config.
func NewResource(cfg *config.Config) (*resource.Resource, error) {
	return resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.AppName),
		attribute.String("service.version", cfg.AppVersion),
		attribute.String("deployment.environment", cfg.AppEnv),
	))
}

// Provide exports traces and metrics over OTLP/HTTP when OTEL.ADDR is set and
// falls back to the global no-op providers otherwise.
func Provide(lc fx.Lifecycle, cfg *config.Config) (Providers, error) {
	if cfg.Otel.Addr == "" {
		zap.L().Info("OTEL.ADDR not set, telemetry export disabled")
		return Providers{Tracer: otel.GetTracerProvider(), Meter: otel.GetMeterProvider()}, nil
	}

	res, err := NewResource(cfg)
	if err != nil {
		return Providers{}, err
	}

	spanExporter, err := exporters.ProvideHttp(cfg)
	if err != nil {
		return Providers{}, err
	}
	metricExporter, err := exporters.ProvideMetricHttp(cfg)
	if err != nil {
		return Providers{}, err
	}

	tp := ProvideTrace(spanExporter, trace.WithResource(res))
	mp := ProvideMetric(metric.NewPeriodicReader(metricExporter, metric.WithInterval(15*time.Second)), metric.WithResource(res))

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
		},
	})

	zap.L().Info("telemetry export enabled", zap.String("endpoint", cfg.Otel.Addr))
	return Providers{Tracer: tp, Meter: mp}, nil
}
