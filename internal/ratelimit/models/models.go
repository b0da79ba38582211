package models

import (
	"strings"
	"time"
)

// Result is the outcome of a single rate limit check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// Limit is a request budget per sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// ClientKey builds the bucket key for a client address.
func ClientKey(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = "unknown"
	}
	return "rl:ip:" + ip
}

// RetryAfter rounds up to whole seconds, never below one.
func RetryAfter(now, resetAt time.Time) int {
	d := resetAt.Sub(now)
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}
