package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/catalogbus/libs/db"
	"github.com/md-rashed-zaman/catalogbus/libs/runtime"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/coordinator"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/memstore"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/model"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/outbox"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/relay"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/storage"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/migrations"
)

type outboxStore interface {
	coordinator.Outbox
	relay.Source
}

// backend is the store the coordinator and relay share.
type backend struct {
	tx     coordinator.Transactor
	outbox outboxStore
	repos  map[model.Kind]coordinator.Repository
	ready  runtime.ReadyCheck
	close  func()
}

func openBackend(ctx context.Context, cfg Config, logger *slog.Logger) (*backend, error) {
	repos := make(map[model.Kind]coordinator.Repository, len(model.Kinds))

	if cfg.StoreDriver == driverMemory {
		logger.Warn("using in-memory store; data is lost on exit")
		s := memstore.New()
		for _, k := range model.Kinds {
			repos[k] = s.Repository(k)
		}
		return &backend{
			tx:     s,
			outbox: s.Outbox(),
			repos:  repos,
			ready:  runtime.ReadyCheck{Name: "store", Check: s.Ping},
			close:  func() {},
		}, nil
	}

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	pool, err := db.Open(openCtx, cfg.DatabaseURL, db.Options{MaxConns: cfg.DBMaxConns})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.DBAutoMigrate {
		if err := db.Migrate(openCtx, pool, migrations.FS); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("database migrated")
	}
	for _, k := range model.Kinds {
		repos[k] = storage.NewEntityRepository(pool, k)
	}
	return &backend{
		tx:     pool,
		outbox: outbox.NewRepository(pool),
		repos:  repos,
		ready:  runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		close:  pool.Close,
	}, nil
}
