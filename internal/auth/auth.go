// Package auth turns the identity provider's bearer token into an
// authenticated subject and sends everyone else to sign in.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("authorization header required")
	ErrBadHeader    = errors.New("invalid authorization header format")
	ErrBadToken     = errors.New("invalid or expired token")
)

// Claims are the token claims we read. Only the subject matters.
type Claims struct {
	jwt.RegisteredClaims
}

type contextKey struct{}

// Verifier checks HS256 tokens signed with a shared secret. A Verifier with
// no secret accepts every request.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a Verifier for secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Enabled reports whether tokens are checked at all.
func (v *Verifier) Enabled() bool { return len(v.secret) > 0 }

// Verify parses a raw token and returns its subject.
func (v *Verifier) Verify(raw string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", ErrBadToken
	}
	return claims.Subject, nil
}

// FromHeader extracts and verifies the token in an Authorization header.
func (v *Verifier) FromHeader(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", ErrBadHeader
	}
	return v.Verify(parts[1])
}

// GenerateToken signs a token for subject valid for ttl. The identity
// provider issues real tokens; this exists for local development and tests.
func GenerateToken(subject, secret string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Middleware rejects unauthenticated requests with 401 and a redirect to
// signInURL. Authenticated subjects are stored in the request context.
func Middleware(v *Verifier, signInURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !v.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			subject, err := v.FromHeader(r.Header.Get("Authorization"))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Location", signInURL)
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":    err.Error(),
					"redirect": signInURL,
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
		})
	}
}

// WithSubject stores an authenticated subject in ctx.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, contextKey{}, subject)
}

// Subject returns the authenticated subject, if any.
func Subject(ctx context.Context) string {
	s, _ := ctx.Value(contextKey{}).(string)
	return s
}
