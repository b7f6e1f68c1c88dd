package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"pazzo-admin/internal/cache"
	"pazzo-admin/internal/service"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"generated", "", false},
		{"client id kept", "abc-123_x.y", true},
		{"too long", strings.Repeat("a", maxRequestIDLength+1), false},
		{"unsafe characters", "id\nInjected: 1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.NotEmpty(t, seen)
			assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
			assert.Equal(t, tt.keep, seen == tt.header)
		})
	}

	assert.Empty(t, GetRequestID(context.Background()))
}

func TestAuthMiddleware(t *testing.T) {
	c := cache.NewMemoryCache(0)
	defer c.Close()
	tokens := service.NewTokenService(c, time.Hour, zap.NewNop())
	token, err := tokens.GenerateToken(context.Background(), "admin@example.com")
	require.NoError(t, err)

	var email string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email = ""
		if td := GetTokenDataFromContext(r.Context()); td != nil {
			email = td.Email
		}
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		required bool
		method   string
		token    string
		status   int
		email    string
	}{
		{"read is public", true, http.MethodGet, "", http.StatusNoContent, ""},
		{"mutation needs token", true, http.MethodPost, "", http.StatusUnauthorized, ""},
		{"forged token", true, http.MethodDelete, "pzt_nope", http.StatusUnauthorized, ""},
		{"valid token", true, http.MethodPut, token, http.StatusNoContent, "admin@example.com"},
		{"open twin accepts anonymous writes", false, http.MethodPost, "", http.StatusNoContent, ""},
		{"open twin still reads token", false, http.MethodGet, token, http.StatusNoContent, "admin@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthMiddleware(AuthConfig{TokenService: tokens, Required: tt.required})(next)
			req := httptest.NewRequest(tt.method, "/api/ccs", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusNoContent {
				assert.Equal(t, tt.email, email)
			}
		})
	}
}

func TestRecoveryAndLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	h := RequestID(NewRecovery(log)(NewLogging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			panic("boom")
		}
		w.WriteHeader(http.StatusTeapot)
	}))))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tea", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(http.StatusTeapot), entries[0].ContextMap()["status"])
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}
