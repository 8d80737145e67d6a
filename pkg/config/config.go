// Package config loads runtime configuration from the environment for the
// skillvault CLI and gate API.
package config

import "os"

// Config holds process-wide configuration.
type Config struct {
	Port              string
	LogLevel          string
	StoreDSN          string
	DefaultPolicyPath string
	Deterministic     bool
	GateAuditDSN      string // optional; empty disables the audit log
	RedisURL          string // optional; empty keeps rate limiting in-process
	AuthHMACSecret    string // optional; empty disables bearer-token auth on the gate route
	OTLPEndpoint      string // optional; empty disables OpenTelemetry trace export
}

// Load reads configuration from environment variables, applying the same
// defaults a fresh checkout would need to run locally.
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logLevel := os.Getenv("SKILLVAULT_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	storeDSN := os.Getenv("SKILLVAULT_STORE_DSN")
	if storeDSN == "" {
		storeDSN = "skillvault.db"
	}

	policyPath := os.Getenv("SKILLVAULT_POLICY_PATH")
	if policyPath == "" {
		policyPath = "policy.yaml"
	}

	return &Config{
		Port:              port,
		LogLevel:          logLevel,
		StoreDSN:          storeDSN,
		DefaultPolicyPath: policyPath,
		Deterministic:     os.Getenv("SKILLVAULT_DETERMINISTIC") == "true",
		GateAuditDSN:      os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		AuthHMACSecret:    os.Getenv("SKILLVAULT_AUTH_HMAC_SECRET"),
		OTLPEndpoint:      os.Getenv("SKILLVAULT_OTLP_ENDPOINT"),
	}
}
