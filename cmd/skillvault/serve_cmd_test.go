package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniel-p-green/skillvault/pkg/api"
	"github.com/daniel-p-green/skillvault/pkg/contracts"
	"github.com/daniel-p-green/skillvault/pkg/logging"
	"github.com/daniel-p-green/skillvault/pkg/store"
	"github.com/daniel-p-green/skillvault/pkg/telemetry"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestApplyAuth_EmptySecretLeavesRouteOpen(t *testing.T) {
	handler := applyAuth(okHandler(), "", logging.NewDefault("error"))

	req := httptest.NewRequest(http.MethodPost, "/v1/gate", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApplyAuth_SecretSetRejectsMissingToken(t *testing.T) {
	handler := applyAuth(okHandler(), "s3cr3t", logging.NewDefault("error"))

	req := httptest.NewRequest(http.MethodPost, "/v1/gate", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestApplyAuth_SecretSetAcceptsValidScopedToken(t *testing.T) {
	secret := "s3cr3t"
	handler := applyAuth(okHandler(), secret, logging.NewDefault("error"))

	claims := api.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Scopes:           []string{gateWriteScope},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/gate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInventoryAudit_RecordWritesStoreAndOutbox(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "inventory.db"))
	require.NoError(t, err)
	defer s.Close()

	outbox, err := telemetry.NewSQLiteOutbox(s.DB())
	require.NoError(t, err)

	audit := &inventoryAudit{store: s, outbox: outbox, log: logging.NewDefault("error")}

	rec := contracts.Receipt{
		BundleSha256: "abc123",
		CreatedAt:    "1970-01-01T00:00:00.000Z",
		Policy: contracts.PolicyDecision{
			Verdict:   contracts.VerdictPass,
			RiskScore: contracts.RiskScore{Total: 10},
		},
	}
	require.NoError(t, audit.Record(context.Background(), rec, "203.0.113.1"))

	stored, err := s.Get(context.Background(), "abc123")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, contracts.VerdictPass, stored.Policy.Verdict)

	pending, err := outbox.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "abc123", pending[0].Event.BundleSha256)
	assert.Equal(t, 10, pending[0].Event.RiskTotal)
}

func TestBuildRateLimiter_EmptyRedisURLUsesInProcess(t *testing.T) {
	limiter, closeFn, err := buildRateLimiter("", 5, 10)
	require.NoError(t, err)
	assert.Nil(t, closeFn)
	assert.NotNil(t, limiter)
}

func TestBuildRateLimiter_InvalidRedisURLErrors(t *testing.T) {
	_, _, err := buildRateLimiter("not-a-redis-url", 5, 10)
	assert.Error(t, err)
}
