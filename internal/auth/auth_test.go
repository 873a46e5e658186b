package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-key"

func protected(v *Verifier) http.Handler {
	return Middleware(v, "/sign-in")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(Subject(r.Context())))
	}))
}

func TestMiddleware(t *testing.T) {
	valid, _, err := GenerateToken("alice", secret, time.Hour)
	require.NoError(t, err)
	expired, _, err := GenerateToken("alice", secret, -time.Hour)
	require.NoError(t, err)
	foreign, _, err := GenerateToken("alice", "other-secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"invalid format", valid, http.StatusUnauthorized},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized},
		{"garbage", "Bearer invalid.token.here", http.StatusUnauthorized},
	}
	h := protected(NewVerifier(secret))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/workflow", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "alice", rec.Body.String())
				return
			}
			assert.Equal(t, "/sign-in", rec.Header().Get("Location"))
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "/sign-in", body["redirect"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestMiddlewareOpenWithoutSecret(t *testing.T) {
	rec := httptest.NewRecorder()
	protected(NewVerifier("")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
