// Package middleware provides the Gin middleware chain shared by the HTTP
// surfaces (internal/api): CORS, tracing, request logging, and per-tier rate
// limiting, grounded in the teacher's pkg/middleware.go (same four concerns)
// and internal/auth/security_middleware.go (gin.HandlerFunc shape, per-key
// token-bucket limiting).
package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/shieldcore/firewall/internal/auth"
	"github.com/shieldcore/firewall/pkg/observability"
)

// CORS mirrors the teacher's allow-listed-origin behavior, adapted to Gin.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := false
		for _, o := range allowedOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}
		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Shield-Ack")
		c.Header("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// Tracing opens one span per request, matching the teacher's
// pkg/middleware.Tracing attribute set.
func Tracing(serviceName string) gin.HandlerFunc {
	tracer := otel.Tracer(serviceName)
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), fmt.Sprintf("%s %s", c.Request.Method, c.FullPath()),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.url", c.Request.URL.String()),
				attribute.String("http.user_agent", c.Request.UserAgent()),
			),
		)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
		if c.Writer.Status() >= 400 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", c.Writer.Status()))
		}
	}
}

// Logging logs request start/completion the way pkg/middleware.Logging does.
func Logging(logger *observability.Logger, perf *observability.PerformanceMonitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		logger.Info(c.Request.Context(), "http request started", map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"remote_addr": c.Request.RemoteAddr,
		})
		c.Next()
		duration := time.Since(start)
		logger.Info(c.Request.Context(), "http request completed", map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
			"duration_ms": duration.Milliseconds(),
		})
		perf.RecordRequest(&observability.RequestMetrics{
			Path:       c.Request.URL.Path,
			Method:     c.Request.Method,
			StatusCode: c.Writer.Status(),
			Duration:   duration,
			Size:       int64(c.Writer.Size()),
			UserAgent:  c.Request.UserAgent(),
			IP:         c.ClientIP(),
			Timestamp:  start,
		})
	}
}

// keyedLimiter lazily allocates one token bucket per API key ID, matching
// the per-key accounting the teacher's RateLimiter does per user/IP.
type keyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newKeyedLimiter() *keyedLimiter {
	return &keyedLimiter{limiters: make(map[string]*rate.Limiter)}
}

func (k *keyedLimiter) allow(keyID string, perMinute int) bool {
	k.mu.Lock()
	lim, ok := k.limiters[keyID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(perMinute)/60, perMinute)
		k.limiters[keyID] = lim
	}
	k.mu.Unlock()
	return lim.Allow()
}

// contextKeyAuth is the gin.Context key RequireAPIKey stores the validated
// key under; handlers read it back via KeyFromContext.
const contextKeyAuth = "shield_api_key"

// RequireAPIKey authenticates the bearer token against KeyManager and
// applies its tier's rate cap. Unauthenticated or rate-limited requests
// never reach a handler. Every outcome is recorded through SecurityLogger,
// the audit trail security-review of the firewall's own admin surface
// expects for an auth gate.
func RequireAPIKey(km *auth.KeyManager, logger *observability.Logger) gin.HandlerFunc {
	limiter := newKeyedLimiter()
	secLog := observability.NewSecurityLogger(logger)
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := c.ClientIP()

		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			secLog.LogAuthEvent(ctx, "api_key_check", "", ip, false, map[string]interface{}{"reason": "missing_bearer_token"})
			writeError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing bearer token", nil)
			return
		}
		token := header[len(prefix):]

		key, err := km.Validate(ctx, token)
		if err != nil {
			secLog.LogAuthEvent(ctx, "api_key_check", "", ip, false, map[string]interface{}{"reason": "invalid_or_revoked"})
			writeError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid or revoked api key", nil)
			return
		}
		if !limiter.allow(key.ID, key.Tier.RateCap()) {
			secLog.LogSecurityViolation(ctx, "rate_limit_exceeded", key.ID, ip, "low")
			writeError(c, http.StatusTooManyRequests, "RATE_LIMITED", "request rate exceeds key's tier cap", nil)
			return
		}
		secLog.LogAuthEvent(ctx, "api_key_check", key.ID, ip, true)
		c.Set(contextKeyAuth, key)
		c.Next()
	}
}

// KeyFromContext returns the key RequireAPIKey validated for this request.
func KeyFromContext(c *gin.Context) (auth.Key, bool) {
	v, ok := c.Get(contextKeyAuth)
	if !ok {
		return auth.Key{}, false
	}
	key, ok := v.(auth.Key)
	return key, ok
}

// writeError writes the standard {error:{code,message,details}} body (spec
// §6) and aborts the chain.
func writeError(c *gin.Context, status int, code, message string, details any) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
