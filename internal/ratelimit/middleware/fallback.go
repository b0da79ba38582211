package middleware

import (
	"context"
	"sync"
	"time"

	"registrar/internal/ratelimit/models"
	"registrar/internal/ratelimit/store/bucket"
)

// FallbackLimiter keeps per-process windows while the shared store is bypassed.
// Every window it opens is dropped by Forget once the shared store recovers,
// so counts taken during an outage do not leak into normal operation.
type FallbackLimiter struct {
	buckets *bucket.InMemoryBucketStore

	mu   sync.Mutex
	keys map[string]struct{}
}

func NewFallbackLimiter(opts ...bucket.MemoryOption) *FallbackLimiter {
	return &FallbackLimiter{
		buckets: bucket.NewInMemoryBucketStore(opts...),
		keys:    make(map[string]struct{}),
	}
}

func (f *FallbackLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	f.mu.Lock()
	f.keys[key] = struct{}{}
	f.mu.Unlock()
	return f.buckets.Allow(ctx, key, limit, window)
}

// Forget drops every window opened since the last call and reports how many.
func (f *FallbackLimiter) Forget(ctx context.Context) int {
	f.mu.Lock()
	keys := f.keys
	f.keys = make(map[string]struct{})
	f.mu.Unlock()

	for key := range keys {
		_ = f.buckets.Reset(ctx, key)
	}
	return len(keys)
}
