package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/md-rashed-zaman/catalogbus/libs/kafkax"
	otelx "github.com/md-rashed-zaman/catalogbus/libs/otel"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestBuildMessage(t *testing.T) {
	evt := model.NewChangeEvent(model.OpUpdated, model.Entity{ID: "c-1", Kind: model.KindClient, Nom: "Acme Corp", Description: "Widgets"}, time.Now())

	msg, err := buildMessage(context.Background(), "catalog.client.events.v1", evt)

	require.NoError(t, err)
	assert.Equal(t, "catalog.client.events.v1", msg.Topic)
	assert.Equal(t, []byte("c-1"), msg.Key)
	assert.Equal(t, evt.EventID, kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventID))
	assert.Equal(t, "client.updated", kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventType))
	assert.Equal(t, "client", kafkax.HeaderValue(msg.Headers, kafkax.HeaderEntityKind))

	var decoded model.ChangeEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, evt.EventID, decoded.EventID)
	assert.Equal(t, "modification", decoded.Action)
	assert.Equal(t, "Acme Corp", *decoded.Payload.Nom)
}

func TestBuildMessageCarriesTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	tp := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	ctx := otelx.Stored{Traceparent: tp}.Restore(context.Background())
	evt := model.NewChangeEvent(model.OpDeleted, model.Entity{ID: "p-1", Kind: model.KindProduit}, time.Now())

	msg, err := buildMessage(ctx, "t", evt)

	require.NoError(t, err)
	assert.Equal(t, tp, kafkax.HeaderValue(msg.Headers, "traceparent"))
}

func TestTopicsDefaultAndOverride(t *testing.T) {
	k, err := NewKafka(Config{
		Brokers: []string{"localhost:9092"},
		Topics:  map[model.Kind]string{model.KindProduit: "produits"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = k.Close() })

	assert.Equal(t, "catalog.client.events.v1", k.Topic(model.KindClient))
	assert.Equal(t, "produits", k.Topic(model.KindProduit))
	assert.Equal(t, []string{"catalog.client.events.v1", "produits"}, k.Topics())
}

func TestNewKafkaRequiresBrokers(t *testing.T) {
	_, err := NewKafka(Config{})
	assert.Error(t, err)
}
