package di

import (
	"bytes"
	"testing"

	"RiskPulse/pkg/config"
	applogger "RiskPulse/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvideEngineHolder_LogsConfiguredCodes(t *testing.T) {
	cfg, err := config.Parse([]byte("environment: development\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	h := ProvideEngineHolder(cfg, applogger.NewWriter(&buf, zerolog.InfoLevel))
	require.NoError(t, h.Cause())

	out := buf.String()
	assert.Contains(t, out, `"message":"engine ready"`)
	assert.Contains(t, out, `"amount_ranges":"$0-100, $100-500, $500-1K, $1K-5K, $5K+"`)
	assert.Contains(t, out, `"location_reason_codes":"location_anomaly, geo_mismatch, ip_country_mismatch"`)
}

func TestProvideEngineHolder_BadEngineSection(t *testing.T) {
	cfg, err := config.Parse([]byte("environment: development\n"))
	require.NoError(t, err)
	cfg.Engine.Timezone = "Nowhere/Invalid"

	var buf bytes.Buffer
	h := ProvideEngineHolder(cfg, applogger.NewWriter(&buf, zerolog.InfoLevel))
	assert.Error(t, h.Cause())
	assert.Contains(t, buf.String(), "engine configuration rejected")
	assert.NotContains(t, buf.String(), "engine ready")
}
