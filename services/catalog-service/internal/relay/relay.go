package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	otelx "github.com/md-rashed-zaman/catalogbus/libs/otel"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/model"
)

// Source is the outbox as seen by the relay.
type Source interface {
	Pending(ctx context.Context, limit int) ([]model.OutboxRecord, error)
	MarkPublished(ctx context.Context, recordID int64) error
	RecordFailure(ctx context.Context, recordID int64, cause error) error
	PurgePublished(ctx context.Context, olderThan time.Duration) (int64, error)
}

type Publisher interface {
	Publish(ctx context.Context, evt model.ChangeEvent) error
}

type Config struct {
	PollInterval    time.Duration
	BatchSize       int
	PublishTimeout  time.Duration
	BackoffInitial  time.Duration
	BackoffMax      time.Duration
	Retention       time.Duration
	CleanupInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 5 * time.Second
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = 500 * time.Millisecond
	}
	if c.BackoffMax < c.BackoffInitial {
		c.BackoffMax = 30 * time.Second
	}
	if c.Retention <= 0 {
		c.Retention = 7 * 24 * time.Hour
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = time.Hour
	}
	return c
}

// Relay moves pending outbox records to the publisher in staging order.
type Relay struct {
	src    Source
	pub    Publisher
	logger *slog.Logger
	cfg    Config
	wake   chan struct{}
}

func New(src Source, pub Publisher, logger *slog.Logger, cfg Config) *Relay {
	return &Relay{
		src:    src,
		pub:    pub,
		logger: logger,
		cfg:    cfg.withDefaults(),
		wake:   make(chan struct{}, 1),
	}
}

// Notify asks the relay to drain now instead of at the next poll. It never blocks.
func (r *Relay) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// DrainOnce publishes one batch of pending records in order. It stops at the
// first failure: a later record may belong to the same entity and must not
// overtake it.
func (r *Relay) DrainOnce(ctx context.Context) (int, error) {
	records, err := r.src.Pending(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, rec := range records {
		if err := r.publish(ctx, rec); err != nil {
			if ferr := r.src.RecordFailure(ctx, rec.RecordID, err); ferr != nil {
				r.logger.Warn("outbox failure bookkeeping failed", "record_id", rec.RecordID, "err", ferr)
			}
			return published, err
		}
		if err := r.src.MarkPublished(ctx, rec.RecordID); err != nil {
			// The event is on the bus; it will be published again and deduplicated downstream.
			return published, err
		}
		published++
		r.logger.Debug("event published",
			"record_id", rec.RecordID,
			"event_id", rec.Event.EventID,
			"event_type", rec.Event.Type(),
			"entity_id", rec.Event.EntityID,
		)
	}
	return published, nil
}

func (r *Relay) publish(ctx context.Context, rec model.OutboxRecord) error {
	ctx = otelx.Stored{Traceparent: rec.Traceparent, Tracestate: rec.Tracestate}.Restore(ctx)
	ctx, cancel := context.WithTimeout(ctx, r.cfg.PublishTimeout)
	defer cancel()
	return r.pub.Publish(ctx, rec.Event)
}

// Run drains until ctx is cancelled. Failures back off exponentially with no
// retry limit; a success resets the backoff. A full batch is followed by an
// immediate drain, otherwise the relay sleeps until the poll interval or a Notify.
func (r *Relay) Run(ctx context.Context) error {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     r.cfg.BackoffInitial,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         r.cfg.BackoffMax,
	}
	b.Reset()

	r.logger.Info("outbox relay started", "batch_size", r.cfg.BatchSize, "poll_interval", r.cfg.PollInterval.String())
	for {
		n, err := r.DrainOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}

		wait := r.cfg.PollInterval
		wake := r.wake
		switch {
		case err != nil:
			wait = b.NextBackOff()
			// Wake-ups would defeat the backoff while the broker is down.
			wake = nil
			r.logger.Warn("outbox relay failed", "err", err, "published", n, "retry_in", wait.String())
		case n >= r.cfg.BatchSize:
			b.Reset()
			continue
		default:
			b.Reset()
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Flush drains until nothing is pending, an error occurs or ctx ends. Used on shutdown.
func (r *Relay) Flush(ctx context.Context) error {
	for {
		n, err := r.DrainOnce(ctx)
		if err != nil || n < r.cfg.BatchSize {
			return err
		}
	}
}

// RunCleanup purges published records past the retention window until ctx is cancelled.
func (r *Relay) RunCleanup(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := r.src.PurgePublished(ctx, r.cfg.Retention)
			if err != nil {
				r.logger.Warn("outbox purge failed", "err", err)
				continue
			}
			if n > 0 {
				r.logger.Info("outbox purged", "records", n, "retention", r.cfg.Retention.String())
			}
		}
	}
}
