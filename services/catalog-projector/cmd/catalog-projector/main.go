package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/md-rashed-zaman/catalogbus/libs/db"
	"github.com/md-rashed-zaman/catalogbus/libs/httpx"
	"github.com/md-rashed-zaman/catalogbus/libs/kafkax"
	otelx "github.com/md-rashed-zaman/catalogbus/libs/otel"
	"github.com/md-rashed-zaman/catalogbus/libs/runtime"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-projector/internal/consumer"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-projector/internal/inbox"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-projector/internal/projection"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-projector/migrations"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "catalog-projector:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := runtime.NewLogger(cfg.ServiceName, cfg.LogLevel)

	ctx, stop := runtime.SignalContext(logger)
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.ServiceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{MaxConns: cfg.DBMaxConns})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()
	if cfg.DBAutoMigrate {
		if err := db.Migrate(ctx, pool, migrations.FS); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	inboxRepo := inbox.NewRepository(pool)
	processor := projection.NewProcessor(pool, inboxRepo, projection.NewRepository(pool), logger)

	consumerCfg := consumer.Config{
		Brokers:      cfg.KafkaBrokers,
		GroupID:      cfg.KafkaGroupID,
		Topics:       cfg.KafkaTopics,
		RetryInitial: cfg.RetryInitial,
		RetryMax:     cfg.RetryMax,
	}
	eventConsumer := consumer.New(consumer.NewReader(consumerCfg), logger, consumerCfg, processor.Handle)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "projector")
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("consumer starting", "group", cfg.KafkaGroupID, "topics", cfg.KafkaTopics)
		return eventConsumer.Run(gctx)
	})
	g.Go(func() error {
		pruneInbox(gctx, logger, inboxRepo, cfg.InboxRetention, cfg.InboxPruneInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "err", err)
		}
		logger.Info("http server stopped")
		return nil
	})
	return g.Wait()
}

func pruneInbox(ctx context.Context, logger *slog.Logger, repo *inbox.Repository, retention, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.Prune(ctx, retention)
			if err != nil {
				logger.Warn("inbox prune failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Info("inbox pruned", "events", n)
			}
		}
	}
}
