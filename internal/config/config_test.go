package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks the env vars these tests depend on, so tests don't leak
// that state from the host environment or between each other.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "HOST", "READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "ALLOWED_ORIGINS",
		"DATABASE_URL", "DB_MAX_OPEN_CONNS",
		"REDIS_URL", "REDIS_PASSWORD",
		"POLICY_MODE", "CHAINS_ENABLED",
		"CHAIN_1_RPC_URLS", "CHAIN_56_RPC_URLS",
		"METRICS_PORT", "METRICS_ENABLED", "SERVICE_VERSION",
		"INDEXER_HEALTH_ADDR",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
	_ = os.Unsetenv("DATABASE_URL")
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadRejectsUnknownPolicyMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/shieldcore")
	t.Setenv("POLICY_MODE", "YOLO")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POLICY_MODE")
}

func TestLoadRequiresAtLeastOneChain(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/shieldcore")
	t.Setenv("CHAINS_ENABLED", "not-a-chain-id")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chains")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/shieldcore")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, PolicyBalanced, cfg.Policy.Mode)
	assert.Len(t, cfg.Chains, 2) // default "1,56"
	assert.Equal(t, 9090, cfg.Observability.MetricsPort)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.Equal(t, ":8081", cfg.Indexer.HealthAddr)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/shieldcore")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CHAINS_ENABLED", "1")
	t.Setenv("CHAIN_1_RPC_URLS", "https://rpc.example")
	t.Setenv("METRICS_PORT", "9999")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	require.Len(t, cfg.Chains, 1)
	assert.Equal(t, []string{"https://rpc.example"}, cfg.Chains["1"].RPCURLs)
	assert.Equal(t, 9999, cfg.Observability.MetricsPort)
	assert.False(t, cfg.Observability.MetricsEnabled)
}

func TestGetSliceEnvFallsBackToDefaultWhenEmptyAfterTrim(t *testing.T) {
	t.Setenv("SOME_LIST", " , ,  ")
	got := getSliceEnv("SOME_LIST", []string{"fallback"})
	assert.Equal(t, []string{"fallback"}, got)
}

func TestGetDurationEnvAcceptsBareMilliseconds(t *testing.T) {
	t.Setenv("SOME_DURATION", "250")
	got := getDurationEnv("SOME_DURATION", time.Second)
	assert.Equal(t, 250*time.Millisecond, got)
}

func TestGetDurationEnvAcceptsGoDuration(t *testing.T) {
	t.Setenv("SOME_DURATION", "1s500ms")
	got := getDurationEnv("SOME_DURATION", time.Minute)
	assert.Equal(t, 1500*time.Millisecond, got)
}

func TestGetBoolEnvInvalidFallsBackToDefault(t *testing.T) {
	t.Setenv("SOME_BOOL", "not-a-bool")
	assert.True(t, getBoolEnv("SOME_BOOL", true))
}

func TestLoadAnalyzersBaselineWeights(t *testing.T) {
	analyzers := loadAnalyzers()
	assert.Equal(t, 0.40, analyzers["structural"].Weight)
	assert.Equal(t, 0.0, analyzers["intent_mismatch"].Weight)
	assert.True(t, analyzers["market"].Enabled)
}
