package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/md-rashed-zaman/catalogbus/libs/httpx"
	"github.com/md-rashed-zaman/catalogbus/libs/kafkax"
	otelx "github.com/md-rashed-zaman/catalogbus/libs/otel"
	"github.com/md-rashed-zaman/catalogbus/libs/runtime"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/coordinator"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/graph"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/handlers"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/publisher"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/relay"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "catalog-service:", err)
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

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.close()

	checks := []runtime.ReadyCheck{be.ready}

	var rel *relay.Relay
	if len(cfg.KafkaBrokers) > 0 {
		pub, err := publisher.NewKafka(publisher.Config{
			Brokers:      cfg.KafkaBrokers,
			Topics:       cfg.Topics(),
			WriteTimeout: cfg.PublishTimeout,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Error("kafka writer close failed", "err", err)
			}
		}()
		rel = relay.New(be.outbox, pub, logger, relay.Config{
			PollInterval:    cfg.RelayPollInterval,
			BatchSize:       cfg.RelayBatchSize,
			PublishTimeout:  cfg.PublishTimeout,
			BackoffInitial:  cfg.RelayBackoffInitial,
			BackoffMax:      cfg.RelayBackoffMax,
			Retention:       cfg.OutboxRetention,
			CleanupInterval: cfg.OutboxCleanupInterval,
		})
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
		logger.Info("outbox relay enabled", "topics", pub.Topics())
	} else {
		logger.Warn("KAFKA_BROKERS not set; change events stay pending in the outbox")
	}

	opts := coordinator.Options{StoreTimeout: cfg.StoreTimeout}
	if rel != nil {
		opts.Notifier = rel
	}
	catalog := coordinator.New(be.tx, be.outbox, be.repos, logger, opts)

	limiter, closeLimiter := newLimiter(cfg, logger, &checks)
	defer closeLimiter()

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.New(catalog, logger).Register(mux)
	mux.Handle("POST /graphql", graph.Handler(graph.NewSchema(catalog, logger)))

	handler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.DefaultCORSPolicy(cfg.CORSAllowedOrigins)),
		httpx.WithRateLimit(limiter, logger, "/healthz", "/readyz"),
		httpx.WithBodyLimit(cfg.RequestBodyLimit),
		httpx.WithTimeout(cfg.RequestTimeout),
	)
	handler = otelhttp.NewHandler(handler, "catalog")
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv, grpcHealth := newGrpcServer(logger, catalog)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
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
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	if rel != nil {
		g.Go(func() error { return rel.Run(gctx) })
		g.Go(func() error { return rel.RunCleanup(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		grpcHealth.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "err", err)
		}
		grpcSrv.GracefulStop()
		if rel != nil {
			if err := rel.Flush(shutdownCtx); err != nil {
				logger.Warn("outbox flush incomplete", "err", err)
			}
		}
		logger.Info("servers stopped")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newLimiter prefers a shared Redis window and falls back to a per-process one.
func newLimiter(cfg Config, logger *slog.Logger, checks *[]runtime.ReadyCheck) (httpx.Limiter, func()) {
	if cfg.RateLimitPerMinute <= 0 {
		return nil, func() {}
	}
	if cfg.RedisAddr == "" {
		return httpx.NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute), func() {}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	*checks = append(*checks, runtime.ReadyCheck{
		Name:  "redis",
		Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})
	logger.Info("rate limiting via redis", "addr", cfg.RedisAddr, "per_minute", cfg.RateLimitPerMinute)
	return httpx.NewRedisLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, cfg.ServiceName+":rl:"), func() { _ = rdb.Close() }
}
