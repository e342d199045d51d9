package omclient

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nr-mdakilahmed/op-mcp-mod/internal/backoff"
)

// RetryPolicy decides whether a failed attempt should be retried and after
// what delay. statusCode is 0 when the attempt failed before a response was
// received; header is nil in that case. attempt is zero-based.
type RetryPolicy interface {
	ShouldRetry(statusCode int, header http.Header, err error, attempt int) (time.Duration, bool)
}

// DefaultRetryPolicy retries network failures and 5xx responses with
// exponential backoff, honoring Retry-After when the server provides one.
// 4xx responses are never retried: the request will not get better.
type DefaultRetryPolicy struct {
	maxRetries        int
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
	jitter            float64
	strategy          backoff.Strategy
}

// NewDefaultRetryPolicy builds the standard policy. With the package
// defaults (3 retries, 500ms base, x2) the delay sequence is 0.5s, 1s, 2s.
func NewDefaultRetryPolicy(maxRetries int, initialBackoff, maxBackoff time.Duration, multiplier, jitter float64) *DefaultRetryPolicy {
	return &DefaultRetryPolicy{
		maxRetries:        maxRetries,
		initialBackoff:    initialBackoff,
		maxBackoff:        maxBackoff,
		backoffMultiplier: multiplier,
		jitter:            jitter,
		strategy:          backoff.Exponential{},
	}
}

// NewDefaultRetryPolicyWithStrategy is like NewDefaultRetryPolicy with an
// explicit backoff strategy.
func NewDefaultRetryPolicyWithStrategy(maxRetries int, initialBackoff, maxBackoff time.Duration, multiplier, jitter float64, strategy backoff.Strategy) *DefaultRetryPolicy {
	p := NewDefaultRetryPolicy(maxRetries, initialBackoff, maxBackoff, multiplier, jitter)
	p.strategy = strategy
	return p
}

// ShouldRetry implements RetryPolicy.
func (p *DefaultRetryPolicy) ShouldRetry(statusCode int, header http.Header, err error, attempt int) (time.Duration, bool) {
	if attempt >= p.maxRetries {
		return 0, false
	}

	var retry bool
	var delay time.Duration

	switch {
	case err != nil:
		retry = true
	case statusCode >= 500:
		retry = true
		if header != nil {
			delay = parseRetryAfter(header.Get("Retry-After"))
		}
	}

	if !retry {
		return 0, false
	}
	if delay == 0 {
		delay = p.strategy.Delay(attempt, p.initialBackoff, p.maxBackoff, p.backoffMultiplier, p.jitter)
	}
	return delay, true
}

// MaxRetries reports the retry budget so the executor can include the final
// attempt count in errors.
func (p *DefaultRetryPolicy) MaxRetries() int { return p.maxRetries }

// parseRetryAfter handles both delay-seconds and HTTP-date forms, capped at
// one hour to bound worst-case stalls from a misbehaving server.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		if seconds <= 0 {
			return 0
		}
		d := time.Duration(seconds) * time.Second
		if d > time.Hour {
			d = time.Hour
		}
		return d
	}

	if t, err := http.ParseTime(value); err == nil {
		d := time.Until(t)
		if d > 0 && d <= time.Hour {
			return d
		}
	}

	return 0
}
