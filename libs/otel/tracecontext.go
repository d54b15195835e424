package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	keyTraceparent = "traceparent"
	keyTracestate  = "tracestate"
)

// Stored is a span context flattened to the two W3C strings, for a row
// written now and picked up later by another goroutine or process.
type Stored struct {
	Traceparent string
	Tracestate  string
}

// Capture serializes the span context in ctx with the global propagator.
func Capture(ctx context.Context) Stored {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return Stored{Traceparent: carrier[keyTraceparent], Tracestate: carrier[keyTracestate]}
}

// Restore returns ctx with s as its remote parent. An empty s leaves ctx as is.
func (s Stored) Restore(ctx context.Context) context.Context {
	if s.Traceparent == "" {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier{
		keyTraceparent: s.Traceparent,
		keyTracestate:  s.Tracestate,
	})
}
