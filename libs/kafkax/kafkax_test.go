package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestExtractEventMetaIgnoresKey(t *testing.T) {
	msg := kafka.Message{Topic: "catalog.client.events.v1", Key: []byte("abc")}

	meta := ExtractEventMeta(msg)

	assert.Empty(t, meta.EventID)
	assert.Equal(t, "catalog.client.events.v1", meta.EventType)
	assert.Empty(t, meta.EntityKind)
}

func TestExtractEventMetaPrefersHeaders(t *testing.T) {
	msg := kafka.Message{
		Topic: "t",
		Key:   []byte("k"),
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte("evt-1")},
			{Key: HeaderEventType, Value: []byte("client.created")},
			{Key: HeaderEntityKind, Value: []byte("client")},
		},
	}

	meta := ExtractEventMeta(msg)

	assert.Equal(t, EventMeta{EventID: "evt-1", EventType: "client.created", EntityKind: "client"}, meta)
}

func TestTraceHeadersRoundTrip(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := InjectTraceHeaders(ctx, []kafka.Header{{Key: HeaderEventID, Value: []byte("e")}})
	require.NotEmpty(t, HeaderValue(headers, "traceparent"))
	assert.Equal(t, "e", HeaderValue(headers, HeaderEventID))

	out := ExtractTraceContext(context.Background(), kafka.Message{Headers: headers})
	assert.Equal(t, traceID, trace.SpanContextFromContext(out).TraceID())
}
