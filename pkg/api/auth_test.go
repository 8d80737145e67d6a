package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniel-p-green/skillvault/pkg/api"
)

var hmacSecret = []byte("test-secret")

func signToken(t *testing.T, scopes []string, expired bool) string {
	t.Helper()
	exp := time.Now().Add(time.Hour)
	if expired {
		exp = time.Now().Add(-time.Hour)
	}
	claims := api.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
		Scopes:           scopes,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(hmacSecret)
	require.NoError(t, err)
	return signed
}

func hmacKeyFunc(t *jwt.Token) (any, error) { return hmacSecret, nil }

func TestRequireScope_ValidTokenWithScopePasses(t *testing.T) {
	validator := api.NewJWTValidator(hmacKeyFunc)
	handler := api.RequireScope(validator, "gate:write")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/gate", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, []string{"gate:write"}, false))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireScope_MissingScopeRejected(t *testing.T) {
	validator := api.NewJWTValidator(hmacKeyFunc)
	handler := api.RequireScope(validator, "gate:write")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/gate", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, []string{"gate:read"}, false))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireScope_MissingAuthorizationHeaderRejected(t *testing.T) {
	validator := api.NewJWTValidator(hmacKeyFunc)
	handler := api.RequireScope(validator, "gate:write")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/gate", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireScope_ExpiredTokenRejected(t *testing.T) {
	validator := api.NewJWTValidator(hmacKeyFunc)
	handler := api.RequireScope(validator, "gate:write")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/gate", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, []string{"gate:write"}, true))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireScope_NilValidatorFailsClosed(t *testing.T) {
	handler := api.RequireScope(nil, "gate:write")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/gate", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireScope_WrongSchemeRejected(t *testing.T) {
	validator := api.NewJWTValidator(hmacKeyFunc)
	handler := api.RequireScope(validator, "gate:write")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/gate", nil)
	req.Header.Set("Authorization", "Basic "+signToken(t, []string{"gate:write"}, false))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
