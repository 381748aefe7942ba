package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"RiskPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_DefaultsOnly(t *testing.T) {
	c, err := Parse([]byte("environment: development\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 4*time.Hour, c.Engine.WindowWidth)
	assert.Equal(t, time.Minute, c.Engine.SweepInterval)
	assert.Equal(t, "scored-transactions", c.Kafka.EventsTopic)
	assert.False(t, c.Kafka.Enabled)

	ec, err := c.EngineConfig()
	require.NoError(t, err)
	assert.Len(t, ec.AmountRanges, 5)
	assert.Equal(t, "10000", ec.HighAmountCeiling.String())
	assert.Equal(t, 0.8, ec.AlertThreshold)
	assert.Equal(t, time.UTC, ec.Location)
}

func TestParse_EngineSection(t *testing.T) {
	yml := `
environment: production
engine:
  window_width: 1h
  retention_horizon: 6h
  amount_ranges:
    - {label: small, lower: "0", upper: "50.5"}
    - {label: large, lower: "50.5"}
  risk_cutpoints: {low_max: 0.2, high_min: 0.9}
  high_amount_ceiling: "2500.75"
  timezone: Europe/Berlin
  location_reason_codes: [vpn]
`
	c, err := Parse([]byte(yml))
	require.NoError(t, err)

	ec, err := c.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ec.WindowWidth)
	require.Len(t, ec.AmountRanges, 2)
	assert.Equal(t, "50.5", ec.AmountRanges[0].Upper.String())
	assert.Nil(t, ec.AmountRanges[1].Upper)
	assert.Equal(t, "2500.75", ec.HighAmountCeiling.String())
	assert.Equal(t, "Europe/Berlin", ec.Location.String())
	assert.Equal(t, []string{"vpn"}, ec.LocationReasonCodes)
	assert.NotEmpty(t, ec.PatternReasonCodes)
}

func TestParse_Rejects(t *testing.T) {
	tests := map[string]string{
		"bad environment":    "environment: moon\n",
		"bad log level":      "log: {level: loud}\n",
		"kafka sans brokers": "kafka: {enabled: true}\n",
		"bad timezone":       "engine: {timezone: Mars/Olympus}\n",
		"bad ceiling":        "engine: {high_amount_ceiling: lots}\n",
	}
	for name, yml := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(yml))
			assert.Error(t, err)
		})
	}
}

func TestParse_EngineSemanticsAreConfigErrors(t *testing.T) {
	_, err := Parse([]byte("engine: {risk_cutpoints: {low_max: 0.9, high_min: 0.1}}\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfiguration), "got %v", err)

	_, err = Parse([]byte(`
engine:
  amount_ranges:
    - {label: a, lower: "0", upper: "10"}
    - {label: b, lower: "20"}
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestLoadWithEnv_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: staging\n"), 0o644))

	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_TOPIC", "events")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("HTTP_PORT", "9090")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "events", c.Kafka.EventsTopic)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "cache:6379", c.Redis.Addr)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 9090, c.Server.Port)
}

func TestLoadWithEnv_BadPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: staging\n"), 0o644))
	t.Setenv("HTTP_PORT", "eighty")

	_, err := LoadWithEnv(path)
	assert.Error(t, err)
}
