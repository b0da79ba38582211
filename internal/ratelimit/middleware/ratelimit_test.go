package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"registrar/internal/ratelimit/metrics"
	"registrar/internal/ratelimit/models"
	"registrar/internal/ratelimit/store/bucket"
	"registrar/pkg/platform/httputil"
	"registrar/pkg/requestcontext"
)

type limiterFunc func(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)

func (f limiterFunc) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	return f(ctx, key, limit, window)
}

var errStoreDown = errors.New("store down")

func failing() Limiter {
	return limiterFunc(func(context.Context, string, int, time.Duration) (*models.Result, error) {
		return nil, errStoreDown
	})
}

type RateLimitSuite struct {
	suite.Suite
	logger  *slog.Logger
	metrics *metrics.Metrics
	limit   models.Limit
}

func TestRateLimitSuite(t *testing.T) {
	suite.Run(t, new(RateLimitSuite))
}

func (s *RateLimitSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.limit = models.Limit{Requests: 2, Window: time.Minute}
}

func (s *RateLimitSuite) serve(m *Middleware, ip string) *httptest.ResponseRecorder {
	h := m.RateLimit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/students", nil)
	req = req.WithContext(requestcontext.WithClientIP(req.Context(), ip))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func (s *RateLimitSuite) TestLimitsPerClient() {
	m := New(bucket.NewInMemoryBucketStore(), s.limit, s.logger, WithMetrics(s.metrics))

	s.Equal(http.StatusNoContent, s.serve(m, "10.0.0.1").Code)
	rec := s.serve(m, "10.0.0.1")
	s.Equal(http.StatusNoContent, rec.Code)
	s.Equal("2", rec.Header().Get("X-RateLimit-Limit"))
	s.Equal("0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = s.serve(m, "10.0.0.1")
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.NotEmpty(rec.Header().Get("Retry-After"))

	var body httputil.ErrorResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
	s.Equal("too_many_requests", body.Error)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Rejected))

	s.Equal(http.StatusNoContent, s.serve(m, "10.0.0.2").Code, "other clients keep their own budget")
}

func (s *RateLimitSuite) TestDisabled() {
	m := New(failing(), s.limit, s.logger, WithDisabled(true))
	for range 5 {
		rec := s.serve(m, "10.0.0.1")
		s.Equal(http.StatusNoContent, rec.Code)
		s.Empty(rec.Header().Get("X-RateLimit-Limit"))
	}
}

func (s *RateLimitSuite) TestStoreErrorWithoutFallbackFailsOpen() {
	m := New(failing(), s.limit, s.logger, WithMetrics(s.metrics))
	for range 3 {
		s.Equal(http.StatusNoContent, s.serve(m, "10.0.0.1").Code)
	}
	s.Equal(3.0, testutil.ToFloat64(s.metrics.StoreErrors))
}

func (s *RateLimitSuite) TestStoreErrorUsesFallback() {
	m := New(failing(), s.limit, s.logger, WithFallback(NewFallbackLimiter()), WithMetrics(s.metrics))

	rec := s.serve(m, "10.0.0.1")
	s.Equal(http.StatusNoContent, rec.Code)
	s.Equal("degraded", rec.Header().Get("X-RateLimit-Status"))
	s.Equal(http.StatusNoContent, s.serve(m, "10.0.0.1").Code)
	s.Equal(http.StatusTooManyRequests, s.serve(m, "10.0.0.1").Code)
	s.Equal(3.0, testutil.ToFloat64(s.metrics.FallbackChecks))
}

func (s *RateLimitSuite) TestCircuitRecovers() {
	healthy := false
	primary := bucket.NewInMemoryBucketStore()
	flaky := limiterFunc(func(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
		if !healthy {
			return nil, errStoreDown
		}
		return primary.Allow(ctx, key, limit, window)
	})
	limit := models.Limit{Requests: 100, Window: time.Minute}
	m := New(flaky, limit, s.logger, WithFallback(NewFallbackLimiter()), WithBreakerThresholds(2, 2), WithMetrics(s.metrics))

	s.serve(m, "10.0.0.1")
	s.Equal(0.0, testutil.ToFloat64(s.metrics.CircuitOpen), "one error is below the threshold")
	s.serve(m, "10.0.0.1")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CircuitOpen))

	healthy = true
	s.Equal("degraded", s.serve(m, "10.0.0.1").Header().Get("X-RateLimit-Status"))
	s.Empty(s.serve(m, "10.0.0.1").Header().Get("X-RateLimit-Status"))
	s.Equal(0.0, testutil.ToFloat64(s.metrics.CircuitOpen))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Transitions.WithLabelValues("fallback")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Transitions.WithLabelValues("primary")))
}

func (s *RateLimitSuite) TestRecoveryDropsFallbackWindows() {
	healthy := false
	flaky := limiterFunc(func(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
		if !healthy {
			return nil, errStoreDown
		}
		return &models.Result{Allowed: true, Limit: limit, Remaining: limit - 1, ResetAt: time.Now().Add(window)}, nil
	})
	m := New(flaky, s.limit, s.logger, WithFallback(NewFallbackLimiter()), WithBreakerThresholds(1, 1))

	s.Equal(http.StatusNoContent, s.serve(m, "10.0.0.1").Code)
	s.Equal(http.StatusNoContent, s.serve(m, "10.0.0.1").Code)
	s.Equal(http.StatusTooManyRequests, s.serve(m, "10.0.0.1").Code)

	healthy = true
	s.Equal(http.StatusNoContent, s.serve(m, "10.0.0.1").Code)

	healthy = false
	rec := s.serve(m, "10.0.0.1")
	s.Equal(http.StatusNoContent, rec.Code, "outage counts were dropped on recovery")
	s.Equal("degraded", rec.Header().Get("X-RateLimit-Status"))
}

func TestStoreBreaker(t *testing.T) {
	var changes []string
	b := newStoreBreaker(2, 2)
	b.onChange = func(from, to route) { changes = append(changes, from.String()+"->"+to.String()) }

	assert.Equal(t, routePrimary, b.observe(errStoreDown))
	assert.Equal(t, routePrimary, b.observe(nil), "a success resets the failure streak")
	assert.Equal(t, routePrimary, b.observe(errStoreDown))
	assert.Equal(t, routeFallback, b.observe(errStoreDown))

	assert.Equal(t, routeFallback, b.observe(nil))
	assert.Equal(t, routeFallback, b.observe(errStoreDown), "an error resets the recovery streak")
	assert.Equal(t, routeFallback, b.observe(nil))
	assert.Equal(t, routePrimary, b.observe(nil))

	assert.Equal(t, []string{"primary->fallback", "fallback->primary"}, changes)
}

func TestFallbackLimiterForget(t *testing.T) {
	ctx := context.Background()
	f := NewFallbackLimiter()
	for range 2 {
		_, err := f.Allow(ctx, "rl:ip:10.0.0.1", 1, time.Minute)
		require.NoError(t, err)
	}
	_, err := f.Allow(ctx, "rl:ip:10.0.0.2", 1, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 2, f.Forget(ctx))
	result, err := f.Allow(ctx, "rl:ip:10.0.0.1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1, f.Forget(ctx))
}
