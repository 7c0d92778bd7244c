package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "localhost", cfg.PostgresHost)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "wishlist-service", cfg.ConsumerGroup)
	assert.Equal(t, "http://localhost:8001", cfg.ProductServiceURL)
	assert.False(t, cfg.TracingEnabled)
	assert.Empty(t, cfg.PprofAllowedCIDRs)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WISHLIST_HTTP_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("PPROF_ALLOWED_CIDRS", "10.0.0.0/8,192.168.0.0/16")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.0.0/16"}, cfg.PprofAllowedCIDRs)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("WISHLIST_HTTP_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}
