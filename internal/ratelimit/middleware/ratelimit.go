package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"registrar/internal/ratelimit/metrics"
	"registrar/internal/ratelimit/models"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/httputil"
	"registrar/pkg/requestcontext"
)

// Limiter is a sliding-window bucket store.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
}

type Middleware struct {
	limiter  Limiter
	fallback Limiter
	breaker  *storeBreaker
	limit    models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// WithFallback sets the limiter used while the primary store is failing.
func WithFallback(fallback Limiter) Option {
	return func(m *Middleware) {
		m.fallback = fallback
	}
}

func WithMetrics(mtr *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mtr
	}
}

// WithBreakerThresholds sets how many consecutive store errors move checks to
// the fallback and how many successes move them back (defaults 5 and 3).
func WithBreakerThresholds(tripAfter, recoverAfter int) Option {
	return func(m *Middleware) {
		m.breaker = newStoreBreaker(tripAfter, recoverAfter)
	}
}

// forgetter is implemented by fallbacks that hold state worth dropping once
// the shared store is back.
type forgetter interface {
	Forget(ctx context.Context) int
}

func New(limiter Limiter, limit models.Limit, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		limit:   limit,
		logger:  logger,
		breaker: newStoreBreaker(5, 3),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.breaker.onChange = m.routeChanged
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit limits requests per client IP.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := models.ClientKey(requestcontext.ClientIP(ctx))

		result, degraded := m.check(ctx, key)
		if degraded {
			w.Header().Set("X-RateLimit-Status", "degraded")
		}
		if result == nil {
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)
		if !result.Allowed {
			m.metrics.IncrementRejected()
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteError(w, dErrors.New(dErrors.CodeTooManyRequests, "too many requests, retry later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// check consults the primary store, falling back to memory on error.
// A nil result means no limiter could answer and the request is let through.
func (m *Middleware) check(ctx context.Context, key string) (*models.Result, bool) {
	result, err := m.limiter.Allow(ctx, key, m.limit.Requests, m.limit.Window)
	degraded := m.breaker.observe(err) == routeFallback
	if err == nil {
		return result, degraded
	}

	m.metrics.IncrementStoreErrors()
	m.logger.ErrorContext(ctx, "rate limit check failed",
		"error", err,
		"degraded", degraded,
		"request_id", requestcontext.RequestID(ctx),
	)
	if m.fallback == nil {
		return nil, degraded
	}

	m.metrics.IncrementFallbackChecks()
	result, err = m.fallback.Allow(ctx, key, m.limit.Requests, m.limit.Window)
	if err != nil {
		return nil, true
	}
	return result, true
}

func (m *Middleware) routeChanged(from, to route) {
	m.metrics.RecordRouteChange(to.String())
	attrs := []any{"from", from.String(), "to", to.String()}
	if f, ok := m.fallback.(forgetter); ok && to == routePrimary {
		attrs = append(attrs, "dropped_windows", f.Forget(context.Background()))
	}
	m.logger.Warn("rate limit store route changed", attrs...)
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
