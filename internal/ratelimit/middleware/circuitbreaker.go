package middleware

import "sync"

// route says which limiter answers a check.
type route int

const (
	routePrimary route = iota
	routeFallback
)

func (r route) String() string {
	if r == routeFallback {
		return "fallback"
	}
	return "primary"
}

// storeBreaker moves checks off a failing shared store. It trips after tripAfter
// consecutive primary errors and returns to the primary after recoverAfter
// consecutive successes. onChange runs once per transition, outside the lock.
type storeBreaker struct {
	mu           sync.Mutex
	route        route
	failures     int
	successes    int
	tripAfter    int
	recoverAfter int
	onChange     func(from, to route)
}

func newStoreBreaker(tripAfter, recoverAfter int) *storeBreaker {
	return &storeBreaker{tripAfter: tripAfter, recoverAfter: recoverAfter}
}

// observe records one primary outcome and returns the route now in effect.
func (b *storeBreaker) observe(err error) route {
	b.mu.Lock()
	from := b.route
	switch {
	case err != nil:
		b.successes = 0
		b.failures++
		if b.route == routePrimary && b.failures >= b.tripAfter {
			b.route = routeFallback
		}
	case b.route == routeFallback:
		b.successes++
		if b.successes >= b.recoverAfter {
			b.route = routePrimary
			b.failures, b.successes = 0, 0
		}
	default:
		b.failures = 0
	}
	to, onChange := b.route, b.onChange
	b.mu.Unlock()

	if from != to && onChange != nil {
		onChange(from, to)
	}
	return to
}
