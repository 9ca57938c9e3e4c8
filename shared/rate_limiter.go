package shared

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// HTTPRequestRateLimiter spaces out requests to the same upstream host
type HTTPRequestRateLimiter struct {
	minimumDelay time.Duration
	limiter      *rate.Limiter
	requestCount int64
}

// NewHTTPRequestRateLimiter creates a new rate limiter with the specified minimum delay.
// A delay of zero or less disables limiting.
func NewHTTPRequestRateLimiter(minimumDelay time.Duration) *HTTPRequestRateLimiter {
	limit := rate.Inf
	if minimumDelay > 0 {
		limit = rate.Every(minimumDelay)
	}
	return &HTTPRequestRateLimiter{
		minimumDelay: minimumDelay,
		limiter:      rate.NewLimiter(limit, 1),
	}
}

// Wait blocks until the minimum delay has elapsed since the last request.
// It fails early when ctx ends first or its deadline is too close.
func (limiter *HTTPRequestRateLimiter) Wait(ctx context.Context) error {
	if err := limiter.limiter.Wait(ctx); err != nil {
		logrus.WithFields(logrus.Fields{
			"component":     "HTTPRequestRateLimiter",
			"minimum_delay": limiter.minimumDelay,
		}).WithError(err).Debug("Rate limit wait aborted")
		return err
	}

	atomic.AddInt64(&limiter.requestCount, 1)
	return nil
}

// GetRequestCount returns the total number of requests processed
func (limiter *HTTPRequestRateLimiter) GetRequestCount() int64 {
	return atomic.LoadInt64(&limiter.requestCount)
}
