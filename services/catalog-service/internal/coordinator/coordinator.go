// Package coordinator applies catalog mutations and stages their change events
// in the same transaction. Publishing is left to the relay.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, nom, description string) (model.Entity, error)
	GetByID(ctx context.Context, id string) (model.Entity, error)
	List(ctx context.Context) ([]model.Entity, error)
	Update(ctx context.Context, id, nom, description string) (model.Entity, error)
	Delete(ctx context.Context, id string) (model.Entity, error)
}

type Outbox interface {
	Stage(ctx context.Context, evt model.ChangeEvent) (model.OutboxRecord, error)
}

// Transactor runs fn in a transaction carried by the context it is given.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier is poked after each commit. *relay.Relay implements it.
type Notifier interface {
	Notify()
}

type Options struct {
	StoreTimeout time.Duration
	Notifier     Notifier
	Now          func() time.Time
}

type Coordinator struct {
	tx       Transactor
	outbox   Outbox
	repos    map[model.Kind]Repository
	logger   *slog.Logger
	timeout  time.Duration
	notifier Notifier
	now      func() time.Time
}

func New(tx Transactor, outbox Outbox, repos map[model.Kind]Repository, logger *slog.Logger, opts Options) *Coordinator {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{
		tx:       tx,
		outbox:   outbox,
		repos:    repos,
		logger:   logger,
		timeout:  opts.StoreTimeout,
		notifier: opts.Notifier,
		now:      opts.Now,
	}
}

func (c *Coordinator) Create(ctx context.Context, kind model.Kind, nom, description string) (model.Entity, error) {
	repo, err := c.repo(kind)
	if err != nil {
		return model.Entity{}, err
	}
	if err := model.ValidateFields(nom); err != nil {
		return model.Entity{}, err
	}
	return c.mutate(ctx, model.OpCreated, func(ctx context.Context) (model.Entity, error) {
		return repo.Create(ctx, nom, description)
	})
}

func (c *Coordinator) Get(ctx context.Context, kind model.Kind, id string) (model.Entity, error) {
	repo, err := c.repo(kind)
	if err != nil {
		return model.Entity{}, err
	}
	if strings.TrimSpace(id) == "" {
		return model.Entity{}, model.NotFound(kind, id)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	e, err := repo.GetByID(ctx, id)
	return e, asDomain(err, "get "+kind.String())
}

func (c *Coordinator) List(ctx context.Context, kind model.Kind) ([]model.Entity, error) {
	repo, err := c.repo(kind)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	list, err := repo.List(ctx)
	if err != nil {
		return nil, asDomain(err, "list "+kind.String())
	}
	return list, nil
}

func (c *Coordinator) Update(ctx context.Context, kind model.Kind, id, nom, description string) (model.Entity, error) {
	repo, err := c.repo(kind)
	if err != nil {
		return model.Entity{}, err
	}
	if err := model.ValidateFields(nom); err != nil {
		return model.Entity{}, err
	}
	if strings.TrimSpace(id) == "" {
		return model.Entity{}, model.NotFound(kind, id)
	}
	return c.mutate(ctx, model.OpUpdated, func(ctx context.Context) (model.Entity, error) {
		return repo.Update(ctx, id, nom, description)
	})
}

func (c *Coordinator) Delete(ctx context.Context, kind model.Kind, id string) (model.Entity, error) {
	repo, err := c.repo(kind)
	if err != nil {
		return model.Entity{}, err
	}
	if strings.TrimSpace(id) == "" {
		return model.Entity{}, model.NotFound(kind, id)
	}
	return c.mutate(ctx, model.OpDeleted, func(ctx context.Context) (model.Entity, error) {
		return repo.Delete(ctx, id)
	})
}

// mutate applies the write and stages its event in one transaction. The
// transaction runs detached from the caller's cancellation: once started, a
// mutation either commits with its event or rolls back entirely, whatever
// happens to the request.
func (c *Coordinator) mutate(ctx context.Context, op model.Operation, apply func(context.Context) (model.Entity, error)) (model.Entity, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	var (
		entity model.Entity
		rec    model.OutboxRecord
	)
	err := c.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		e, err := apply(ctx)
		if err != nil {
			return err
		}
		r, err := c.outbox.Stage(ctx, model.NewChangeEvent(op, e, c.now()))
		if err != nil {
			return err
		}
		entity, rec = e, r
		return nil
	})
	if err != nil {
		return model.Entity{}, asDomain(err, string(op))
	}

	c.logger.Info("mutation committed",
		"kind", entity.Kind.String(),
		"op", string(op),
		"entity_id", entity.ID,
		"event_id", rec.Event.EventID,
		"record_id", rec.RecordID,
	)
	if c.notifier != nil {
		c.notifier.Notify()
	}
	return entity, nil
}

func (c *Coordinator) repo(kind model.Kind) (Repository, error) {
	repo, ok := c.repos[kind]
	if !ok {
		return nil, model.Validation("unknown entity kind %q", kind)
	}
	return repo, nil
}

// asDomain leaves domain errors as they are and classifies anything else
// (transaction begin/commit, deadline) as a persistence failure.
func asDomain(err error, op string) error {
	if err == nil {
		return nil
	}
	var de *model.Error
	if errors.As(err, &de) {
		return err
	}
	return model.Persistence(op, err)
}
