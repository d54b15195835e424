package projection

import (
	"context"
	"errors"
	"log/slog"

	"github.com/md-rashed-zaman/catalogbus/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

type Inbox interface {
	Record(ctx context.Context, eventID, eventType string) (bool, error)
}

type Store interface {
	Apply(ctx context.Context, evt Event) (bool, error)
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Processor applies one message. The inbox claim and the projection write
// commit together, so a redelivery after a crash is either a no-op or a full retry.
type Processor struct {
	tx     Transactor
	inbox  Inbox
	store  Store
	logger *slog.Logger
}

func NewProcessor(tx Transactor, inbox Inbox, store Store, logger *slog.Logger) *Processor {
	return &Processor{tx: tx, inbox: inbox, store: store, logger: logger}
}

// Handle returns an error only for failures worth retrying. Malformed
// messages are logged and dropped.
func (p *Processor) Handle(ctx context.Context, msg kafka.Message) error {
	evt, err := Decode(msg.Value)
	if err != nil {
		p.logger.Error("dropping change event", "err", err, "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
		return nil
	}
	meta := kafkax.ExtractEventMeta(msg)
	eventID := meta.EventID
	if eventID == "" {
		eventID = evt.EventID
	}
	if eventID == "" {
		p.logger.Error("dropping change event", "err", errors.New("no event id"), "topic", msg.Topic, "offset", msg.Offset)
		return nil
	}

	var fresh, applied bool
	err = p.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		fresh, err = p.inbox.Record(ctx, eventID, evt.Type())
		if err != nil || !fresh {
			return err
		}
		applied, err = p.store.Apply(ctx, evt)
		return err
	})
	if err != nil {
		return err
	}

	switch {
	case !fresh:
		p.logger.Info("duplicate event ignored", "event_id", eventID, "event_type", evt.Type())
	case !applied:
		p.logger.Info("stale event skipped", "event_id", eventID, "event_type", evt.Type(), "entity_id", evt.EntityID)
	default:
		p.logger.Debug("event projected", "event_id", eventID, "event_type", evt.Type(), "entity_id", evt.EntityID)
	}
	return nil
}
