package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vango-mixed/pkg/bridge"
	"github.com/vango-dev/vango-mixed/pkg/protocol"
)

// Default tracer name for vango-mixed.
const defaultTracerName = "vango-mixed"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "vango-mixed").
	TracerName string

	// TracerProvider supplies the tracer (default: the global provider).
	TracerProvider trace.TracerProvider

	// Filter determines which operations to trace.
	// If nil, all operations are traced.
	Filter func(call Call) bool

	// AttributeExtractor adds custom attributes to each span.
	AttributeExtractor func(call Call) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithCallFilter sets a filter function for operations.
func WithCallFilter(filter func(call Call) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(call Call) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func (c OTelConfig) tracer() trace.Tracer {
	tp := c.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(c.TracerName)
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{TracerName: defaultTracerName}
}

// OpenTelemetry creates middleware that traces every bridge operation.
//
// Each add, setParameters and dispose gets a client span named after the
// operation, carrying the container, marker and target runtime. The span
// context is passed down so transports can propagate it.
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracerProvider is given. Configure it in main() before serving:
//
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}
	tracer := config.tracer()

	return func(next bridge.Bridge) bridge.Bridge {
		return wrap(next, func(ctx context.Context, call Call, run func(context.Context) error) error {
			if config.Filter != nil && !config.Filter(call) {
				return run(ctx)
			}

			attrs := []attribute.KeyValue{
				attribute.String("mixed.op", call.Op.String()),
				attribute.String("mixed.container", string(call.Container)),
			}
			if call.Marker != "" {
				attrs = append(attrs, attribute.String("mixed.marker", string(call.Marker)))
			}
			if call.Target.Valid() {
				attrs = append(attrs, attribute.String("mixed.target", call.Target.String()))
			}
			if config.AttributeExtractor != nil {
				attrs = append(attrs, config.AttributeExtractor(call)...)
			}

			spanCtx, span := tracer.Start(ctx, "mixed."+call.Op.String(),
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			err := run(spanCtx)
			recordResult(span, err)
			return err
		})
	}
}

// TraceInvoker creates a span for every operation sent through inv.
func TraceInvoker(inv bridge.Invoker, opts ...OTelOption) bridge.Invoker {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}
	tracer := config.tracer()

	return &invokerHook{next: inv, fn: func(ctx context.Context, op protocol.Op, run func(context.Context) (any, error)) (any, error) {
		spanCtx, span := tracer.Start(ctx, "mixed.wire."+op.String(),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attribute.String("mixed.op", op.String())),
		)
		defer span.End()

		v, err := run(spanCtx)
		recordResult(span, err)
		return v, err
	}}
}

func recordResult(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("mixed.error_type", categorizeError(err)))
		return
	}
	span.SetStatus(codes.Ok, "")
}
