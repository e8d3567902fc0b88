// Package intel implements the six DataServices named in spec §4.2: one per
// external intelligence source (contract-reputation, honeypot-simulation,
// market-data, wallet-reputation, simulation, scam-list). Each service
// normalizes one external provider into a stable schema and exposes a
// single Fetch(ctx, key) with a built-in response cache, retry-with-jitter,
// and a circuit breaker — the teacher's database query-cache pattern
// (pkg/database.RedisClient.GetWithFallback) generalized to outbound HTTP
// rather than SQL.
package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/shieldcore/firewall/internal/config"
	"github.com/shieldcore/firewall/internal/model"
	"github.com/shieldcore/firewall/pkg/database"
)

// base is embedded by every concrete DataService; it supplies the cache,
// retry, and circuit-breaker plumbing so each service file only implements
// the provider-specific fetch and normalization.
type base struct {
	name    string
	cache   *database.RedisClient
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker
}

func newBase(name string, cache *database.RedisClient, ttl time.Duration, circuit config.CircuitConfig) base {
	return base{
		name:  name,
		cache: cache,
		ttl:   ttl,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     name,
			Timeout:  circuit.Cooldown,
			Interval: circuit.Window,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(circuit.FailThreshold)
			},
		}),
	}
}

// health implements the health() probe used by circuit breakers and the
// /api/health endpoint.
func (b base) health() string {
	switch b.breaker.State() {
	case gobreaker.StateClosed:
		return "up"
	case gobreaker.StateHalfOpen:
		return "degraded"
	default:
		return "down"
	}
}

func (b base) cacheKey(key string) string {
	return fmt.Sprintf("intel:%s:%s", b.name, key)
}

// fetchWithRetry runs fn through the circuit breaker with bounded
// retry-with-jitter, grounded in the teacher's retry-then-breaker idiom
// used across its Redis and Postgres wrappers.
func fetchWithRetry(ctx context.Context, breaker *gobreaker.CircuitBreaker, op string, fn func() (any, error)) (any, error) {
	const maxAttempts = 3
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := breaker.Execute(fn)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, model.NewShieldError(model.KindUnavailable, op, err)
		}
		if model.KindOf(err) == model.KindPermanentUpstream {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, model.NewShieldError(model.KindDeadlineExceeded, op, ctx.Err())
		case <-time.After(jitter(attempt)):
		}
	}
	return nil, model.NewShieldError(model.KindTransientUpstream, op, lastErr)
}

func jitter(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * 20 * time.Millisecond
	return base + time.Duration(rand.Intn(20))*time.Millisecond
}

// DataService is the uniform contract every intel service satisfies.
type DataService interface {
	Name() string
	Health() string
}

// fetchCached is the shared Fetch skeleton for every service: a typed
// cache read via the teacher's GetString/SetWithExpiry primitives (used
// directly, rather than GetWithFallback, so the cached value round-trips
// through its original Go type instead of a generic map[string]any), a
// circuit-broken, retried call to upstream on miss, and a best-effort cache
// write of the result.
func fetchCached[T any](ctx context.Context, b base, op, key string, upstream func() (T, error)) (T, error) {
	var zero T
	cacheKey := b.cacheKey(key)
	if raw, err := b.cache.GetString(ctx, cacheKey); err == nil && raw != "" {
		var cached T
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
			return cached, nil
		}
	}

	result, err := fetchWithRetry(ctx, b.breaker, op, func() (any, error) {
		return upstream()
	})
	if err != nil {
		return zero, err
	}
	value := result.(T)

	if encoded, jsonErr := json.Marshal(value); jsonErr == nil {
		_ = b.cache.SetWithExpiry(ctx, cacheKey, encoded, b.ttl)
	}
	return value, nil
}

// fetchNormalized performs the single outbound HTTP round-trip every
// concrete DataService needs: GET endpoint?address=<addr>, decode JSON into
// T. The provider's own payload shape is an external collaborator detail
// (spec §1 non-goals); this is the one normalization seam every provider's
// client flows through.
func fetchNormalized[T any](ctx context.Context, client *http.Client, endpoint string, addr model.Address) (T, error) {
	var zero T
	if endpoint == "" {
		return zero, model.NewShieldError(model.KindUnavailable, "intel.fetchNormalized", fmt.Errorf("no endpoint configured"))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?address="+addr.Hex()+"&chain_id="+fmt.Sprint(addr.ChainID), nil)
	if err != nil {
		return zero, model.NewShieldError(model.KindInternalInvariant, "intel.fetchNormalized", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return zero, model.NewShieldError(model.KindTimeout, "intel.fetchNormalized", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return zero, model.NewShieldError(model.KindRateLimited, "intel.fetchNormalized", fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 500 {
		return zero, model.NewShieldError(model.KindTransientUpstream, "intel.fetchNormalized", fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return zero, model.NewShieldError(model.KindPermanentUpstream, "intel.fetchNormalized", fmt.Errorf("status %d", resp.StatusCode))
	}
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return zero, model.NewShieldError(model.KindMalformed, "intel.fetchNormalized", err)
	}
	return out, nil
}
