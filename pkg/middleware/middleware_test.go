package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shieldcore/firewall/internal/config"
	"github.com/shieldcore/firewall/pkg/observability"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSSetsAllowOriginWhenAllowed(t *testing.T) {
	handler := CORS([]string{"https://trusted.example"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://trusted.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://trusted.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSOmitsAllowOriginWhenNotAllowed(t *testing.T) {
	handler := CORS([]string{"https://trusted.example"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcardAllowsAnyOrigin(t *testing.T) {
	handler := CORS([]string{"*"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://anything.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://anything.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSHandlesPreflightWithoutCallingNext(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	handler := CORS([]string{"*"})(next)

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitBlocksAfterBurstExhausted(t *testing.T) {
	handler := RateLimit(config.RateLimitConfig{RequestsPerMinute: 60, Burst: 2})(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRecoveryConvertsPanicToInternalServerError(t *testing.T) {
	logger := observability.NewLogger(config.ObservabilityConfig{})
	panicker := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler := Recovery(logger)(panicker)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NotPanics(t, func() { handler.ServeHTTP(rec, req) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetUserIDAndEmailRoundTrip(t *testing.T) {
	ctx := context.WithValue(context.Background(), UserIDKey, "user-123")
	ctx = context.WithValue(ctx, UserEmailKey, "user@example.com")

	id, ok := GetUserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-123", id)

	email, ok := GetUserEmail(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user@example.com", email)
}

func TestGetUserIDMissingReturnsFalse(t *testing.T) {
	_, ok := GetUserID(context.Background())
	assert.False(t, ok)
}
