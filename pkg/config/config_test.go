package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daniel-p-green/skillvault/pkg/config"
)

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	for _, k := range []string{"PORT", "SKILLVAULT_LOG_LEVEL", "SKILLVAULT_STORE_DSN", "SKILLVAULT_POLICY_PATH", "SKILLVAULT_DETERMINISTIC", "DATABASE_URL", "REDIS_URL", "SKILLVAULT_AUTH_HMAC_SECRET", "SKILLVAULT_OTLP_ENDPOINT"} {
		t.Setenv(k, "")
	}

	cfg := config.Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "skillvault.db", cfg.StoreDSN)
	assert.Equal(t, "policy.yaml", cfg.DefaultPolicyPath)
	assert.False(t, cfg.Deterministic)
	assert.Empty(t, cfg.GateAuditDSN)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.AuthHMACSecret)
	assert.Empty(t, cfg.OTLPEndpoint)
}

func TestLoad_ReadsOverridesFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SKILLVAULT_LOG_LEVEL", "debug")
	t.Setenv("SKILLVAULT_STORE_DSN", "/tmp/custom.db")
	t.Setenv("SKILLVAULT_POLICY_PATH", "/etc/skillvault/policy.yaml")
	t.Setenv("SKILLVAULT_DETERMINISTIC", "true")
	t.Setenv("DATABASE_URL", "postgres://localhost/skillvault")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SKILLVAULT_AUTH_HMAC_SECRET", "s3cr3t")
	t.Setenv("SKILLVAULT_OTLP_ENDPOINT", "localhost:4317")

	cfg := config.Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/custom.db", cfg.StoreDSN)
	assert.Equal(t, "/etc/skillvault/policy.yaml", cfg.DefaultPolicyPath)
	assert.True(t, cfg.Deterministic)
	assert.Equal(t, "postgres://localhost/skillvault", cfg.GateAuditDSN)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "s3cr3t", cfg.AuthHMACSecret)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
}
