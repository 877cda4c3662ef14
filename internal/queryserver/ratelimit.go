package queryserver

import "golang.org/x/time/rate"

// RateLimiter throttles request admission to N requests per second
// with a burst allowance, grounded on the token-bucket pattern the
// pack's own API clients use for outbound calls (`golang.org/x/time/
// rate.NewLimiter`), applied here to inbound admission instead.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter returns a RateLimiter allowing perSecond requests per
// second with burst headroom.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Allow reports whether a request may proceed right now, consuming a
// token if so.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}
