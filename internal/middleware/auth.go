// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/gatekeeper/internal/logging"
	"github.com/tomtom215/gatekeeper/internal/models"
)

type callerKey struct{}

// ErrMissingToken is returned when no bearer token was presented.
var ErrMissingToken = errors.New("missing bearer token")

// TokenValidator checks HS256 tokens issued to gateway callers.
type TokenValidator struct {
	secret []byte
	leeway time.Duration
}

// NewTokenValidator creates a validator for secret.
func NewTokenValidator(secret string) (*TokenValidator, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	return &TokenValidator{secret: []byte(secret), leeway: 30 * time.Second}, nil
}

// Validate parses token and returns its claims. Only HS256 is accepted and
// an expiry is required.
func (v *TokenValidator) Validate(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// IssueToken signs a token for subject. Used by operators and tests to mint
// gateway credentials.
func (v *TokenValidator) IssueToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// BearerAuth rejects requests without a valid bearer token. With an empty
// secret it passes every request through.
func BearerAuth(secret string) func(http.Handler) http.Handler {
	if secret == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	validator, err := NewTokenValidator(secret)
	if err != nil {
		panic(err)
	}
	return validator.Middleware
}

// Middleware enforces bearer authentication.
func (v *TokenValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err == nil {
			var claims *jwt.RegisteredClaims
			if claims, err = v.Validate(token); err == nil {
				ctx := context.WithValue(r.Context(), callerKey{}, claims.Subject)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		logging.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("Rejected unauthenticated request")
		writeUnauthorized(w, r)
	})
}

// CallerFromContext returns the authenticated token subject, or "".
func CallerFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(callerKey{}).(string); ok {
		return s
	}
	return ""
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter for WebSocket clients that cannot set headers.
func bearerToken(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", errors.New("malformed authorization header")
		}
		return strings.TrimSpace(token), nil
	}
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="gatekeeper"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(&models.APIResponse{
		Status: "error",
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
		Error: &models.APIError{Code: "UNAUTHORIZED", Message: "Authentication required"},
	})
}
