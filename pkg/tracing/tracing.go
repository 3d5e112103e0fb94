// Package tracing exports spans over OTLP gRPC.
package tracing

import (
	"context"
	"fmt"
	"time"

	"github.com/fitsarchive/calassoc/pkg/buildtime"
	"github.com/fitsarchive/calassoc/pkg/configs/calassoc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Name of the instrumentation scope of calassoc spans.
const Name = "github.com/fitsarchive/calassoc"

// Setup installs the global tracer provider.
//
// With nil config, spans are not exported and Setup does nothing.
// The returned function flushes and stops exporting.
func Setup(ctx context.Context, conf *calassoc.TracingConfig, component string) (func(context.Context) error, error) {
	if conf == nil {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(conf.Endpoint()),
		otlptracegrpc.WithTimeout(30 * time.Second),
	}
	if conf.Insecure() {
		opts = append(
			opts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(conf.ServiceName()),
			semconv.ServiceVersion(buildtime.VersionString()),
			semconv.ServiceInstanceID(component),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	switch ratio := conf.SamplingRatio(); {
	case 1.0 <= ratio:
		sampler = sdktrace.AlwaysSample()
	case ratio <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(ratio)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return provider.Shutdown, nil
}
