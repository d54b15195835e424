package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/catalogbus/libs/kafkax"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/model"
	"github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers []string
	// Topics maps each kind to its topic. Kinds without an entry use DefaultTopic.
	Topics       map[model.Kind]string
	WriteTimeout time.Duration
}

// DefaultTopic is the topic for kind when none is configured.
func DefaultTopic(kind model.Kind) string {
	return "catalog." + kind.String() + ".events.v1"
}

// Kafka writes change events synchronously, one topic per kind, keyed by entity id.
type Kafka struct {
	writer *kafka.Writer
	topics map[model.Kind]string
}

func NewKafka(cfg Config) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka publisher: no brokers configured")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	topics := make(map[model.Kind]string, len(model.Kinds))
	for _, k := range model.Kinds {
		topics[k] = DefaultTopic(k)
		if t := cfg.Topics[k]; t != "" {
			topics[k] = t
		}
	}
	return &Kafka{
		writer: &kafka.Writer{
			Addr: kafka.TCP(cfg.Brokers...),
			// Same key, same partition: per-entity order survives partitioning.
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           10 * time.Millisecond,
			WriteTimeout:           cfg.WriteTimeout,
			AllowAutoTopicCreation: true,
		},
		topics: topics,
	}, nil
}

// Publish returns once the broker acknowledged the message. Every failure is a
// retryable publish error.
func (k *Kafka) Publish(ctx context.Context, evt model.ChangeEvent) error {
	msg, err := buildMessage(ctx, k.Topic(evt.EntityKind), evt)
	if err != nil {
		return model.Publish(err)
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return model.Publish(fmt.Errorf("write %s: %w", msg.Topic, err))
	}
	return nil
}

func (k *Kafka) Topic(kind model.Kind) string {
	if t, ok := k.topics[kind]; ok {
		return t
	}
	return DefaultTopic(kind)
}

func (k *Kafka) Topics() []string {
	out := make([]string, 0, len(model.Kinds))
	for _, kind := range model.Kinds {
		out = append(out, k.Topic(kind))
	}
	return out
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

func buildMessage(ctx context.Context, topic string, evt model.ChangeEvent) (kafka.Message, error) {
	value, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event %s: %w", evt.EventID, err)
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(evt.SequenceKey),
		Value: value,
		Headers: []kafka.Header{
			{Key: kafkax.HeaderEventID, Value: []byte(evt.EventID)},
			{Key: kafkax.HeaderEventType, Value: []byte(evt.Type())},
			{Key: kafkax.HeaderEntityKind, Value: []byte(evt.EntityKind)},
		},
	}
	msg.Headers = kafkax.InjectTraceHeaders(ctx, msg.Headers)
	return msg, nil
}
