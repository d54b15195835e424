package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/catalogbus/libs/config"
	"github.com/md-rashed-zaman/catalogbus/services/catalog-service/internal/model"
)

const (
	driverPostgres = "postgres"
	driverMemory   = "memory"
)

type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"catalog-service"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	GRPCPort    string `env:"GRPC_PORT" envDefault:"9090"`

	// StoreDriver is postgres, or memory for a throwaway local instance.
	StoreDriver   string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"10"`

	KafkaBrokers      []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaClientTopic  string   `env:"KAFKA_CLIENT_TOPIC" envDefault:"catalog.client.events.v1"`
	KafkaProduitTopic string   `env:"KAFKA_PRODUIT_TOPIC" envDefault:"catalog.produit.events.v1"`

	StoreTimeout          time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	PublishTimeout        time.Duration `env:"PUBLISH_TIMEOUT" envDefault:"5s"`
	RelayPollInterval     time.Duration `env:"RELAY_POLL_INTERVAL" envDefault:"2s"`
	RelayBatchSize        int           `env:"RELAY_BATCH_SIZE" envDefault:"100"`
	RelayBackoffInitial   time.Duration `env:"RELAY_BACKOFF_INITIAL" envDefault:"500ms"`
	RelayBackoffMax       time.Duration `env:"RELAY_BACKOFF_MAX" envDefault:"30s"`
	OutboxRetention       time.Duration `env:"OUTBOX_RETENTION" envDefault:"168h"`
	OutboxCleanupInterval time.Duration `env:"OUTBOX_CLEANUP_INTERVAL" envDefault:"1h"`

	RedisAddr          string        `env:"REDIS_ADDR"`
	RedisPassword      string        `env:"REDIS_PASSWORD"`
	RedisDB            int           `env:"REDIS_DB" envDefault:"0"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	RequestBodyLimit   int64         `env:"REQUEST_BODY_LIMIT_BYTES" envDefault:"1048576"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := config.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if err := config.ValidPort(c.HTTPPort); err != nil {
		errs = append(errs, fmt.Errorf("HTTP_PORT %w", err))
	}
	if err := config.ValidPort(c.GRPCPort); err != nil {
		errs = append(errs, fmt.Errorf("GRPC_PORT %w", err))
	}
	switch c.StoreDriver {
	case driverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required"))
		}
	case driverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %s or %s (got %q)", driverPostgres, driverMemory, c.StoreDriver))
	}
	if c.RelayBatchSize <= 0 {
		errs = append(errs, errors.New("RELAY_BATCH_SIZE must be positive"))
	}
	if c.KafkaClientTopic == c.KafkaProduitTopic {
		errs = append(errs, errors.New("KAFKA_CLIENT_TOPIC and KAFKA_PRODUIT_TOPIC must differ"))
	}
	return errors.Join(errs...)
}

func (c Config) Topics() map[model.Kind]string {
	return map[model.Kind]string{
		model.KindClient:  c.KafkaClientTopic,
		model.KindProduit: c.KafkaProduitTopic,
	}
}
