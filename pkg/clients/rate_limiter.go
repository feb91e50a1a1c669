// Package clients provides rate limiting for outbound API traffic
package clients

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter defines the interface for rate limiting implementations.
// It supports immediate checks and blocking waits.
type RateLimiter interface {
	// Allow checks if a request is allowed
	Allow() bool

	// Wait blocks until a request is allowed
	Wait(ctx context.Context) error

	// SetRate updates the rate limit
	SetRate(r float64)

	// SetBurst updates the burst size
	SetBurst(burst int)

	// GetStats returns rate limiter statistics
	GetStats() RateLimiterStats
}

// RateLimiterStats provides statistics about rate limiter performance
// and current state for monitoring and debugging.
type RateLimiterStats struct {
	Rate            float64       `json:"rate"`
	Burst           int           `json:"burst"`
	AllowedRequests int64         `json:"allowed_requests"`
	BlockedRequests int64         `json:"blocked_requests"`
	AverageWaitTime time.Duration `json:"average_wait_time"`
}

// tokenBucketRateLimiter wraps golang.org/x/time/rate with stats tracking.
type tokenBucketRateLimiter struct {
	limiter *rate.Limiter

	allowedRequests int64
	blockedRequests int64
	totalWaitTime   int64
}

// NewRateLimiter creates a new token bucket rate limiter with the specified
// rate (requests per second) and burst size (maximum requests that can be
// made at once).
func NewRateLimiter(r float64, burst int) RateLimiter {
	return &tokenBucketRateLimiter{
		limiter: rate.NewLimiter(rate.Limit(r), burst),
	}
}

// Allow checks if a request is allowed immediately.
func (tb *tokenBucketRateLimiter) Allow() bool {
	if tb.limiter.Allow() {
		atomic.AddInt64(&tb.allowedRequests, 1)
		return true
	}
	atomic.AddInt64(&tb.blockedRequests, 1)
	return false
}

// Wait blocks until a request is allowed or the context is canceled.
func (tb *tokenBucketRateLimiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := tb.limiter.Wait(ctx); err != nil {
		atomic.AddInt64(&tb.blockedRequests, 1)
		return err
	}
	atomic.AddInt64(&tb.allowedRequests, 1)
	atomic.AddInt64(&tb.totalWaitTime, time.Since(start).Nanoseconds())
	return nil
}

// SetRate updates the rate limit
func (tb *tokenBucketRateLimiter) SetRate(r float64) {
	tb.limiter.SetLimit(rate.Limit(r))
}

// SetBurst updates the burst size
func (tb *tokenBucketRateLimiter) SetBurst(burst int) {
	tb.limiter.SetBurst(burst)
}

// GetStats returns rate limiter statistics
func (tb *tokenBucketRateLimiter) GetStats() RateLimiterStats {
	allowed := atomic.LoadInt64(&tb.allowedRequests)
	blocked := atomic.LoadInt64(&tb.blockedRequests)
	totalWait := atomic.LoadInt64(&tb.totalWaitTime)

	stats := RateLimiterStats{
		Rate:            float64(tb.limiter.Limit()),
		Burst:           tb.limiter.Burst(),
		AllowedRequests: allowed,
		BlockedRequests: blocked,
	}
	if allowed > 0 {
		stats.AverageWaitTime = time.Duration(totalWait / allowed)
	}
	return stats
}
