// Package telemetry wires the OTel SDK: OTLP gRPC exporters for traces and
// metrics, a resource describing this server and the warehouse it fronts, and
// pre-created instruments for the query path.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ServiceInfo identifies this deployment on every exported span and metric.
type ServiceInfo struct {
	Name        string
	Version     string
	WarehouseID string
	Transport   string
}

func (s ServiceInfo) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(s.Name),
		semconv.ServiceVersion(s.Version),
	}
	if s.WarehouseID != "" {
		attrs = append(attrs, attribute.String("causeway.warehouse.id", s.WarehouseID))
	}
	if s.Transport != "" {
		attrs = append(attrs, attribute.String("causeway.transport", s.Transport))
	}
	return attrs
}

// Provider holds the registered trace and metric providers for shutdown.
type Provider struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// Init registers global OTel trace and metric providers backed by OTLP gRPC
// exporters. The exporter endpoint comes from the standard
// OTEL_EXPORTER_OTLP_ENDPOINT env var, read by the SDK itself.
func Init(ctx context.Context, info ServiceInfo) (*Provider, error) {
	res, err := resource.New(ctx, resource.WithAttributes(info.attributes()...))
	if err != nil {
		return nil, fmt.Errorf("creating otel resource: %w", err)
	}

	tp, err := newTraceProvider(ctx, res)
	if err != nil {
		return nil, err
	}
	mp, err := newMeterProvider(ctx, res)
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	// Trace context propagation only matters for the HTTP transport; stdio
	// has no headers to propagate through.
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &Provider{tp: tp, mp: mp}, nil
}

func newTraceProvider(ctx context.Context, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

func newMeterProvider(ctx context.Context, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	), nil
}

// Shutdown flushes and shuts down both providers. Nil-safe.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var tpErr, mpErr error
	if p.tp != nil {
		if err := p.tp.Shutdown(ctx); err != nil {
			tpErr = fmt.Errorf("shutting down tracer: %w", err)
		}
	}
	if p.mp != nil {
		if err := p.mp.Shutdown(ctx); err != nil {
			mpErr = fmt.Errorf("shutting down meter: %w", err)
		}
	}
	return errors.Join(tpErr, mpErr)
}

// NoopTracer returns a tracer that does nothing (for when OTel is disabled).
func NoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("noop")
}
