package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"devtoken/observability"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"staking": {RatePerSecond: 1, Burst: 1},
	}, nil)
	frozen := time.Unix(1_700_000_000, 0)
	limiter.clockNow = func() time.Time { return frozen }
	handler := limiter.Middleware("staking")(okHandler())

	before := testutil.ToFloat64(observability.ModuleMetrics().ThrottleCounter("staking", "rate_limit"))

	req := httptest.NewRequest(http.MethodPost, "/v1/stake", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusTooManyRequests, res.Code)
	require.Equal(t, "1", res.Header().Get("Retry-After"))
	require.Contains(t, res.Body.String(), "rate_limited")

	after := testutil.ToFloat64(observability.ModuleMetrics().ThrottleCounter("staking", "rate_limit"))
	require.Equal(t, before+1, after)

	// One second later the bucket has refilled.
	frozen = frozen.Add(time.Second)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
}

func TestRateLimiterSeparatesRoutes(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"staking": {RatePerSecond: 1, Burst: 1},
		"token":   {RatePerSecond: 1, Burst: 1},
	}, nil)
	stakingHandler := limiter.Middleware("staking")(okHandler())
	tokenHandler := limiter.Middleware("token")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/stake", nil)
	req.Header.Set(APIKeyHeader, "tenant-A")
	res := httptest.NewRecorder()
	stakingHandler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	tokenReq := httptest.NewRequest(http.MethodPost, "/v1/transfer", nil)
	tokenReq.Header.Set(APIKeyHeader, "tenant-A")
	tokenRes := httptest.NewRecorder()
	tokenHandler.ServeHTTP(tokenRes, tokenReq)
	require.Equal(t, http.StatusOK, tokenRes.Code)

	tokenRes = httptest.NewRecorder()
	tokenHandler.ServeHTTP(tokenRes, tokenReq)
	require.Equal(t, http.StatusTooManyRequests, tokenRes.Code)
}

func TestRateLimiterPrefersAPIKeyOverIP(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"staking": {RatePerSecond: 1, Burst: 1},
	}, nil)
	handler := limiter.Middleware("staking")(okHandler())

	for _, tenant := range []string{"tenant-A", "tenant-B"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/stakes/x", nil)
		req.Header.Set(APIKeyHeader, tenant)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		require.Equal(t, http.StatusOK, res.Code, tenant)
	}
}

func TestRateLimiterUnknownRoutePassesThrough(t *testing.T) {
	limiter := NewRateLimiter(nil, nil)
	handler := limiter.Middleware("events")(okHandler())
	for i := 0; i < 5; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/events/x", nil))
		require.Equal(t, http.StatusOK, res.Code)
	}
	require.Zero(t, limiter.visitorCount())
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"staking": {RatePerSecond: 1, Burst: 1},
	}, nil)
	now := time.Unix(1_700_000_000, 0)
	limiter.clockNow = func() time.Time { return now }
	handler := limiter.Middleware("staking")(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first.Header.Set(APIKeyHeader, "a")
	handler.ServeHTTP(httptest.NewRecorder(), first)
	require.Equal(t, 1, limiter.visitorCount())

	now = now.Add(2 * visitorIdleTTL)
	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.Header.Set(APIKeyHeader, "b")
	handler.ServeHTTP(httptest.NewRecorder(), second)
	require.Equal(t, 1, limiter.visitorCount())
}

func TestClientIDSources(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	require.Equal(t, "10.0.0.1", clientID(req))

	req.Header.Set("X-Forwarded-For", "192.0.2.7, 10.0.0.1")
	require.Equal(t, "192.0.2.7", clientID(req))

	req.Header.Set("X-Real-IP", "198.51.100.3")
	require.Equal(t, "198.51.100.3", clientID(req))

	req.Header.Set(APIKeyHeader, "tenant")
	require.Equal(t, "key:tenant", clientID(req))
}
