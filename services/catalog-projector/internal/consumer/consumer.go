package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/md-rashed-zaman/catalogbus/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Reader is the part of *kafka.Reader the consumer drives.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers      []string
	GroupID      string
	Topics       []string
	RetryInitial time.Duration
	RetryMax     time.Duration
}

// NewReader joins the consumer group over every topic. Offsets are committed
// explicitly, so the reader is built without a commit interval.
func NewReader(cfg Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
}

type Consumer struct {
	reader  Reader
	logger  *slog.Logger
	handler Handler
	cfg     Config
}

func New(reader Reader, logger *slog.Logger, cfg Config, handler Handler) *Consumer {
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = 200 * time.Millisecond
	}
	if cfg.RetryMax < cfg.RetryInitial {
		cfg.RetryMax = 30 * time.Second
	}
	return &Consumer{reader: reader, logger: logger, handler: handler, cfg: cfg}
}

// Run fetches, handles and commits one message at a time until ctx is
// cancelled. A failing message is retried in place: skipping it would let a
// later event for the same entity overtake it.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("kafka fetch error", "err", err)
			if !sleep(ctx, time.Second) {
				return nil
			}
			continue
		}

		if !c.handle(ctx, msg) {
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// Uncommitted messages come back after a rebalance; the inbox drops them.
			c.logger.Warn("kafka commit failed", "err", err, "topic", msg.Topic, "offset", msg.Offset)
		}
	}
}

// handle retries until the handler succeeds. It returns false if ctx ended first.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) bool {
	meta := kafkax.ExtractEventMeta(msg)
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.String("messaging.message.id", meta.EventID),
		),
	)
	defer span.End()

	b := &backoff.ExponentialBackOff{
		InitialInterval:     c.cfg.RetryInitial,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         c.cfg.RetryMax,
	}
	b.Reset()

	for attempt := 1; ; attempt++ {
		err := c.handler(ctxSpan, msg)
		if err == nil {
			return true
		}
		span.RecordError(err)
		if ctx.Err() != nil {
			span.SetStatus(codes.Error, "cancelled")
			return false
		}
		wait := b.NextBackOff()
		c.logger.Error("handler error",
			"err", err,
			"event_id", meta.EventID,
			"event_type", meta.EventType,
			"attempt", attempt,
			"retry_in", wait.String(),
		)
		if !sleep(ctx, wait) {
			span.SetStatus(codes.Error, "cancelled")
			return false
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
