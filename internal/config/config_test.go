package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"LOG_LEVEL", "PORT", "DEV_MODE", "CANDIDATES_FILE", "ENGINE_CONFIG",
		"YAHOO_BREAKER_FAILURES", "YAHOO_BREAKER_TIMEOUT_SECONDS",
	} {
		t.Setenv(key, "")
	}
	// No .env file is picked up from the package directory.
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5000, cfg.Port)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, "nifty_200_final_predictions.csv", cfg.CandidatesFile)
	assert.Equal(t, uint32(3), cfg.Yahoo.BreakerFailures)
	assert.Equal(t, time.Minute, cfg.Yahoo.BreakerTimeout)
	assert.Equal(t, 80.0, cfg.Engine.ProbabilityThreshold)
	assert.Equal(t, 15, cfg.Engine.MaxCandidates)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PORT", "8080")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("CANDIDATES_FILE", "/data/predictions.csv")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "/data/predictions.csv", cfg.CandidatesFile)
}

func TestLoad_InvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "70000")

	_, err := Load()

	assert.Error(t, err)
}

func TestLoadEngineParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
probability_threshold: 75
max_candidates: 10
market_data_timeout: 10s
`), 0o600))

	params, err := LoadEngineParams(path)
	require.NoError(t, err)

	assert.Equal(t, 75.0, params.ProbabilityThreshold)
	assert.Equal(t, 10, params.MaxCandidates)
	assert.Equal(t, 10*time.Second, params.MarketDataTimeout)
	assert.Equal(t, 0.5, params.PrimaryMaxWeight, "unset keys keep defaults")
}

func TestLoadEngineParams_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	params, err := LoadEngineParams(path)
	require.NoError(t, err)

	assert.Equal(t, 0.3, params.FallbackMaxWeight)
}

func TestLoadEngineParams_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadEngineParams(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("max_cap: 0.4\n"), 0o600))
	_, err = LoadEngineParams(unknown)
	assert.Error(t, err, "unknown keys are rejected")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("primary_max_weight: 2\n"), 0o600))
	_, err = LoadEngineParams(invalid)
	assert.Error(t, err)
}

func TestLoadEngineParams_KeepsExplicitZeros(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
materiality_floor: 0
risk_check_min_return: 0
max_missing_fraction: 0
`), 0o600))

	params, err := LoadEngineParams(path)
	require.NoError(t, err)

	assert.Zero(t, params.MaterialityFloor)
	assert.Zero(t, params.RiskCheckMinReturn)
	assert.Zero(t, params.MaxMissingFraction)
	assert.Equal(t, 80.0, params.ProbabilityThreshold, "unset keys keep defaults")
}
