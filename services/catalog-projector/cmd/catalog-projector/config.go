package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/catalogbus/libs/config"
)

type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"catalog-projector"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8081"`

	DatabaseURL   string `env:"DATABASE_URL"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"5"`

	KafkaBrokers []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaGroupID string        `env:"KAFKA_GROUP_ID" envDefault:"catalog-projector"`
	KafkaTopics  []string      `env:"KAFKA_TOPICS" envSeparator:"," envDefault:"catalog.client.events.v1,catalog.produit.events.v1"`
	RetryInitial time.Duration `env:"RETRY_INITIAL" envDefault:"200ms"`
	RetryMax     time.Duration `env:"RETRY_MAX" envDefault:"30s"`

	InboxRetention     time.Duration `env:"INBOX_RETENTION" envDefault:"720h"`
	InboxPruneInterval time.Duration `env:"INBOX_PRUNE_INTERVAL" envDefault:"1h"`
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
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required"))
	}
	if len(c.KafkaTopics) == 0 {
		errs = append(errs, errors.New("KAFKA_TOPICS is required"))
	}
	if c.KafkaGroupID == "" {
		errs = append(errs, errors.New("KAFKA_GROUP_ID is required"))
	}
	return errors.Join(errs...)
}
