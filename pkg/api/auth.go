package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims expected of a gate API caller.
type Claims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes"`
}

// JWTValidator validates bearer tokens against a single HMAC or public key,
// resolved once at startup.
type JWTValidator struct {
	KeyFunc jwt.Keyfunc
}

// NewJWTValidator builds a validator around a jwt.Keyfunc, letting callers
// choose HMAC, RSA, or ECDSA key material without this package caring.
func NewJWTValidator(keyFunc jwt.Keyfunc) *JWTValidator {
	return &JWTValidator{KeyFunc: keyFunc}
}

// Validate parses and validates a bearer token string.
func (v *JWTValidator) Validate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, v.KeyFunc)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// RequireScope returns middleware that authenticates the bearer token and
// rejects requests whose claims lack the given scope. A nil validator
// fails closed: every request is rejected.
func RequireScope(validator *JWTValidator, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				WriteUnauthorized(w, "authentication not configured")
				return
			}

			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				WriteUnauthorized(w, "expected 'Bearer <token>' Authorization header")
				return
			}

			claims, err := validator.Validate(parts[1])
			if err != nil {
				WriteUnauthorized(w, "invalid or expired token")
				return
			}
			if !hasScope(claims.Scopes, scope) {
				WriteUnauthorized(w, fmt.Sprintf("token lacks required scope %q", scope))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}
