// Package memstore is an in-process stand-in for the Postgres entity and
// outbox tables. It backs the memory store driver and the tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	otelx "github.com/md-rashed-zaman/catalogbus/libs/otel"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/model"
)

type row struct {
	entity model.Entity
	seq    int64
}

// Store holds entities per kind and the outbox. Transactions are serialised;
// entity writes are undone on rollback and staged records only become visible
// on commit.
type Store struct {
	txMu sync.Mutex

	mu       sync.Mutex
	rows     map[model.Kind]map[string]row
	outbox   []model.OutboxRecord
	seq      int64
	recordID int64
	now      func() time.Time

	writeErr error
	stageErr error
}

func New() *Store {
	rows := make(map[model.Kind]map[string]row, len(model.Kinds))
	for _, k := range model.Kinds {
		rows[k] = map[string]row{}
	}
	return &Store{rows: rows, now: time.Now}
}

// FailWrites makes every entity mutation fail with a persistence error until cleared with nil.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// FailStaging makes Stage fail until cleared with nil.
func (s *Store) FailStaging(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stageErr = err
}

type journal struct {
	undo   []func()
	staged []model.OutboxRecord
}

type journalKey struct{}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	j := &journal{}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.outbox = append(s.outbox, j.staged...)
	s.mu.Unlock()
	return nil
}

// record registers an undo step when ctx carries a transaction. Callers hold s.mu.
func record(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}

// Repository returns the entity repository for kind.
func (s *Store) Repository(kind model.Kind) *EntityRepository {
	return &EntityRepository{store: s, kind: kind}
}

type EntityRepository struct {
	store *Store
	kind  model.Kind
}

func (r *EntityRepository) Create(ctx context.Context, nom, description string) (model.Entity, error) {
	if err := model.ValidateFields(nom); err != nil {
		return model.Entity{}, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return model.Entity{}, model.Persistence("insert "+r.kind.String(), s.writeErr)
	}

	now := s.now().UTC()
	s.seq++
	e := model.Entity{ID: uuid.NewString(), Kind: r.kind, Nom: nom, Description: description, CreatedAt: now, UpdatedAt: now}
	table := s.rows[r.kind]
	table[e.ID] = row{entity: e, seq: s.seq}
	record(ctx, func() { delete(table, e.ID) })
	return e, nil
}

func (r *EntityRepository) GetByID(_ context.Context, id string) (model.Entity, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	got, ok := s.rows[r.kind][id]
	if !ok {
		return model.Entity{}, model.NotFound(r.kind, id)
	}
	return got.entity, nil
}

func (r *EntityRepository) List(context.Context) ([]model.Entity, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]row, 0, len(s.rows[r.kind]))
	for _, rw := range s.rows[r.kind] {
		rows = append(rows, rw)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	out := make([]model.Entity, len(rows))
	for i, rw := range rows {
		out[i] = rw.entity
	}
	return out, nil
}

func (r *EntityRepository) Update(ctx context.Context, id, nom, description string) (model.Entity, error) {
	if err := model.ValidateFields(nom); err != nil {
		return model.Entity{}, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return model.Entity{}, model.Persistence("update "+r.kind.String(), s.writeErr)
	}

	table := s.rows[r.kind]
	prev, ok := table[id]
	if !ok {
		return model.Entity{}, model.NotFound(r.kind, id)
	}
	next := prev
	next.entity.Nom = nom
	next.entity.Description = description
	next.entity.UpdatedAt = s.now().UTC()
	table[id] = next
	record(ctx, func() { table[id] = prev })
	return next.entity, nil
}

func (r *EntityRepository) Delete(ctx context.Context, id string) (model.Entity, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return model.Entity{}, model.Persistence("delete "+r.kind.String(), s.writeErr)
	}

	table := s.rows[r.kind]
	prev, ok := table[id]
	if !ok {
		return model.Entity{}, model.NotFound(r.kind, id)
	}
	delete(table, id)
	record(ctx, func() { table[id] = prev })
	return prev.entity, nil
}

// Outbox returns the outbox view of the store.
func (s *Store) Outbox() *Outbox {
	return &Outbox{store: s}
}

type Outbox struct {
	store *Store
}

// Stage outside a transaction is visible immediately.
func (o *Outbox) Stage(ctx context.Context, evt model.ChangeEvent) (model.OutboxRecord, error) {
	s := o.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stageErr != nil {
		return model.OutboxRecord{}, model.Persistence("stage event", s.stageErr)
	}

	s.recordID++
	tc := otelx.Capture(ctx)
	rec := model.OutboxRecord{
		RecordID:    s.recordID,
		Event:       evt,
		Status:      model.OutboxPending,
		CreatedAt:   s.now().UTC(),
		Traceparent: tc.Traceparent,
		Tracestate:  tc.Tracestate,
	}
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.staged = append(j.staged, rec)
	} else {
		s.outbox = append(s.outbox, rec)
	}
	return rec, nil
}

func (o *Outbox) Pending(_ context.Context, limit int) ([]model.OutboxRecord, error) {
	s := o.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.OutboxRecord
	for _, rec := range s.outbox {
		if rec.Status != model.OutboxPending {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (o *Outbox) MarkPublished(_ context.Context, recordID int64) error {
	o.update(recordID, func(rec *model.OutboxRecord) {
		now := o.store.now().UTC()
		rec.Status = model.OutboxPublished
		rec.PublishedAt = &now
	})
	return nil
}

func (o *Outbox) RecordFailure(_ context.Context, recordID int64, cause error) error {
	o.update(recordID, func(rec *model.OutboxRecord) {
		rec.Attempts++
		if cause != nil {
			rec.LastError = cause.Error()
		}
	})
	return nil
}

func (o *Outbox) PurgePublished(_ context.Context, olderThan time.Duration) (int64, error) {
	s := o.store
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-olderThan)
	kept := s.outbox[:0]
	var purged int64
	for _, rec := range s.outbox {
		if rec.Status == model.OutboxPublished && rec.PublishedAt != nil && rec.PublishedAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, rec)
	}
	s.outbox = kept
	return purged, nil
}

// Records returns a copy of every committed outbox record in staging order.
func (o *Outbox) Records() []model.OutboxRecord {
	s := o.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.OutboxRecord(nil), s.outbox...)
}

// update applies fn to a pending record; published or unknown records are left alone.
func (o *Outbox) update(recordID int64, fn func(*model.OutboxRecord)) {
	s := o.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].RecordID == recordID && s.outbox[i].Status == model.OutboxPending {
			fn(&s.outbox[i])
			return
		}
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }
