package otelx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.25")

	cfg := ConfigFromEnv("catalog-service")

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "collector:4317", cfg.OTLPEndpoint)
	assert.Equal(t, 0.25, cfg.SampleRatio)
	assert.Equal(t, "catalog-service", cfg.ServiceName)
}

func TestConfigFromEnvIgnoresBadRatio(t *testing.T) {
	t.Setenv("OTEL_SAMPLING_RATIO", "2")

	assert.Equal(t, 1.0, ConfigFromEnv("svc").SampleRatio)
}

func TestSetupDisabledInstallsPropagatorOnly(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", " ")
	t.Setenv("DEPLOYMENT_ENVIRONMENT", "staging")

	cfg := ConfigFromEnv("catalog-projector")

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "jaeger:4317", cfg.OTLPEndpoint)
	assert.Equal(t, "staging", cfg.Environment)
}
