package kafkax

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Headers adapts a message's headers to the otel carrier interface.
// Set replaces an existing key instead of appending a duplicate.
type Headers []kafka.Header

var _ propagation.TextMapCarrier = (*Headers)(nil)

func (h *Headers) Get(key string) string { return HeaderValue(*h, key) }

func (h *Headers) Set(key, value string) {
	for i, hdr := range *h {
		if hdr.Key == key {
			(*h)[i].Value = []byte(value)
			return
		}
	}
	*h = append(*h, kafka.Header{Key: key, Value: []byte(value)})
}

func (h *Headers) Keys() []string {
	out := make([]string, len(*h))
	for i, hdr := range *h {
		out[i] = hdr.Key
	}
	return out
}

// InjectTraceHeaders returns headers plus the trace context of ctx.
func InjectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := Headers(headers)
	otel.GetTextMapPropagator().Inject(ctx, &carrier)
	return carrier
}

// ExtractTraceContext makes the producer's span the remote parent of ctx.
func ExtractTraceContext(ctx context.Context, msg kafka.Message) context.Context {
	carrier := Headers(msg.Headers)
	return otel.GetTextMapPropagator().Extract(ctx, &carrier)
}
