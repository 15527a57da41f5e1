package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	tracer "go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func String(key string, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

func Int(key string, value int) attribute.KeyValue {
	return attribute.Int(key, value)
}

// Shutdown flushes pending spans and releases the exporter connection.
type Shutdown func(ctx context.Context) error

// InitTracer installs a global tracer provider exporting over OTLP/gRPC to
// collectorURL.
func InitTracer(ctx context.Context, serviceName, serviceVersion, collectorURL string) (Shutdown, error) {
	conn, err := grpc.DialContext(ctx, collectorURL, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to collector: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := trace.NewBatchSpanProcessor(
		exporter,
		trace.WithBatchTimeout(time.Second*5),
	)

	tracerProvider := trace.NewTracerProvider(
		trace.WithSampler(trace.AlwaysSample()),
		trace.WithResource(res),
		trace.WithSpanProcessor(bsp),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return func(ctx context.Context) error {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutting down tracer provider: %w", err)
		}
		if err := conn.Close(); err != nil {
			return fmt.Errorf("closing collector connection: %w", err)
		}
		return nil
	}, nil
}

// GetTracer returns an OpenTelemetry tracer for the specified service name.
func GetTracer(serviceName string) tracer.Tracer {
	return otel.GetTracerProvider().Tracer(serviceName)
}

// End records err on the span, if any, and ends it.
func End(span tracer.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
