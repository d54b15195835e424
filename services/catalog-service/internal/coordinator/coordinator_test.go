package coordinator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/memstore"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/model"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingNotifier struct{ n atomic.Int32 }

func (c *countingNotifier) Notify() { c.n.Add(1) }

func newCoordinator(s *memstore.Store, n Notifier) *Coordinator {
	repos := map[model.Kind]Repository{}
	for _, k := range model.Kinds {
		repos[k] = s.Repository(k)
	}
	return New(s, s.Outbox(), repos, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{Notifier: n})
}

func TestCreateGetRoundTrip(t *testing.T) {
	s := memstore.New()
	c := newCoordinator(s, nil)
	ctx := context.Background()

	for _, tc := range []struct{ nom, desc string }{{"Acme", "Widgets"}, {"Ünïcode", ""}, {"x", "long description"}} {
		created, err := c.Create(ctx, model.KindProduit, tc.nom, tc.desc)
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)

		got, err := c.Get(ctx, model.KindProduit, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, got)
	}
}

func TestDeleteThenGetIsNotFound(t *testing.T) {
	c := newCoordinator(memstore.New(), nil)
	ctx := context.Background()
	e, err := c.Create(ctx, model.KindClient, "Acme", "")
	require.NoError(t, err)

	deleted, err := c.Delete(ctx, model.KindClient, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, deleted.ID)

	_, err = c.Get(ctx, model.KindClient, e.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestValidationStoresNothing(t *testing.T) {
	s := memstore.New()
	n := &countingNotifier{}
	c := newCoordinator(s, n)
	ctx := context.Background()

	for _, nom := range []string{"", "   "} {
		_, err := c.Create(ctx, model.KindClient, nom, "Widgets")
		assert.ErrorIs(t, err, model.ErrValidation)
	}
	existing, err := c.Create(ctx, model.KindClient, "Acme", "")
	require.NoError(t, err)
	_, err = c.Update(ctx, model.KindClient, existing.ID, "", "")
	assert.ErrorIs(t, err, model.ErrValidation)

	list, _ := c.List(ctx, model.KindClient)
	assert.Len(t, list, 1)
	assert.Len(t, s.Outbox().Records(), 1)
	assert.Equal(t, int32(1), n.n.Load())
}

func TestMissingEntityStagesNoEvent(t *testing.T) {
	s := memstore.New()
	c := newCoordinator(s, nil)
	ctx := context.Background()

	for _, id := range []string{"", "does-not-exist"} {
		_, err := c.Update(ctx, model.KindProduit, id, "n", "d")
		assert.ErrorIs(t, err, model.ErrNotFound)
		_, err = c.Delete(ctx, model.KindProduit, id)
		assert.ErrorIs(t, err, model.ErrNotFound)
		_, err = c.Get(ctx, model.KindProduit, id)
		assert.ErrorIs(t, err, model.ErrNotFound)
	}
	assert.Empty(t, s.Outbox().Records())
}

func TestPersistenceFailureStagesNoEvent(t *testing.T) {
	s := memstore.New()
	c := newCoordinator(s, nil)
	s.FailWrites(errors.New("connection refused"))

	_, err := c.Create(context.Background(), model.KindClient, "Acme", "")

	assert.ErrorIs(t, err, model.ErrPersistence)
	assert.Empty(t, s.Outbox().Records())
}

func TestStagingFailureRollsBackWrite(t *testing.T) {
	s := memstore.New()
	c := newCoordinator(s, nil)
	s.FailStaging(errors.New("outbox full"))

	_, err := c.Create(context.Background(), model.KindClient, "Acme", "")
	assert.ErrorIs(t, err, model.ErrPersistence)

	list, err := c.List(context.Background(), model.KindClient)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCancelledRequestStillCommits(t *testing.T) {
	s := memstore.New()
	c := newCoordinator(s, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, err := c.Create(ctx, model.KindClient, "Acme", "")

	require.NoError(t, err)
	got, err := c.Get(context.Background(), model.KindClient, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Nom)
	assert.Len(t, s.Outbox().Records(), 1)
}

func TestUnknownKindIsValidationError(t *testing.T) {
	c := newCoordinator(memstore.New(), nil)

	_, err := c.List(context.Background(), model.Kind("commande"))

	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestEveryCommitNotifies(t *testing.T) {
	n := &countingNotifier{}
	c := newCoordinator(memstore.New(), n)
	ctx := context.Background()

	e, _ := c.Create(ctx, model.KindClient, "A", "")
	_, _ = c.Update(ctx, model.KindClient, e.ID, "B", "")
	_, _ = c.Delete(ctx, model.KindClient, e.ID)
	_, _ = c.Get(ctx, model.KindClient, e.ID)

	assert.Equal(t, int32(3), n.n.Load())
}

type recordingBus struct {
	mu     sync.Mutex
	events []model.ChangeEvent
}

func (b *recordingBus) Publish(_ context.Context, evt model.ChangeEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, evt)
	return nil
}

func (b *recordingBus) forEntity(id string) []model.ChangeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.ChangeEvent
	for _, e := range b.events {
		if e.EntityID == id {
			out = append(out, e)
		}
	}
	return out
}

func TestAcmeLifecycleReachesBusInOrder(t *testing.T) {
	s := memstore.New()
	bus := &recordingBus{}
	r := relay.New(s.Outbox(), bus, slog.New(slog.NewTextHandler(io.Discard, nil)), relay.Config{PollInterval: time.Hour})
	c := newCoordinator(s, r)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	created, err := c.Create(ctx, model.KindClient, "Acme", "Widgets")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	updated, err := c.Update(ctx, model.KindClient, created.ID, "Acme Corp", "Widgets")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", updated.Nom)
	assert.Equal(t, created.ID, updated.ID)

	_, err = c.Delete(ctx, model.KindClient, created.ID)
	require.NoError(t, err)
	_, err = c.Get(ctx, model.KindClient, created.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.Eventually(t, func() bool { return len(bus.forEntity(created.ID)) == 3 }, 2*time.Second, 5*time.Millisecond)
	events := bus.forEntity(created.ID)
	assert.Equal(t, []model.Operation{model.OpCreated, model.OpUpdated, model.OpDeleted},
		[]model.Operation{events[0].Operation, events[1].Operation, events[2].Operation})
	assert.Equal(t, "Acme Corp", *events[1].Payload.Nom)
	assert.Nil(t, events[2].Payload.Nom)
	for _, e := range events {
		assert.Equal(t, model.KindClient, e.EntityKind)
		assert.Equal(t, created.ID, e.SequenceKey)
	}
}

func TestConcurrentMutationsKeepPerEntityOrder(t *testing.T) {
	s := memstore.New()
	bus := &recordingBus{}
	r := relay.New(s.Outbox(), bus, slog.New(slog.NewTextHandler(io.Discard, nil)), relay.Config{PollInterval: time.Hour, BatchSize: 7})
	c := newCoordinator(s, r)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	const entities, updates = 8, 5
	ids := make([]string, entities)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := c.Create(ctx, model.KindProduit, "p", "")
			if err != nil {
				return
			}
			ids[i] = e.ID
			for u := 0; u < updates; u++ {
				_, _ = c.Update(ctx, model.KindProduit, e.ID, "p", string(rune('a'+u)))
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		require.NotEmpty(t, id)
		require.Eventually(t, func() bool { return len(bus.forEntity(id)) == updates+1 }, 2*time.Second, 5*time.Millisecond)
		events := bus.forEntity(id)
		assert.Equal(t, model.OpCreated, events[0].Operation)
		for u := 1; u <= updates; u++ {
			assert.Equal(t, string(rune('a'+u-1)), *events[u].Payload.Description)
		}
	}
}
