// Package retry wraps market-data calls with exponential backoff for
// rate-limited upstreams.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"time"
)

var (
	// ErrRateLimited marks an upstream rate-limit response. Its text matches IsRateLimited.
	ErrRateLimited = errors.New("rate limited")
	// ErrNoData is returned when no attempt produced a result or an error.
	ErrNoData = errors.New("no data")
)

// Operation is a single fetch attempt.
type Operation[T any] func(ctx context.Context) (T, error)

// Policy configures the backoff loop.
type Policy struct {
	MaxRetries int           // total attempts, >= 1
	BaseDelay  time.Duration // delay before the second attempt, doubled afterwards
	Jitter     time.Duration // upper bound of the random additive delay
	MaxElapsed time.Duration // 0 means unbounded

	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, err error, delay time.Duration)

	sleep func(ctx context.Context, d time.Duration) error
	rand  func() float64
	now   func() time.Time
}

// DefaultPolicy returns three attempts starting at one second.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		Jitter:     time.Second,
		MaxElapsed: 30 * time.Second,
	}
}

// IsRateLimited reports whether err looks like a transient rate-limit failure.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}

const maxDelay = time.Duration(math.MaxInt64)

// Backoff returns the deterministic part of the delay after the given zero-based attempt.
// It saturates instead of overflowing.
func (p Policy) Backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 63 || p.BaseDelay > maxDelay>>uint(attempt) {
		return maxDelay
	}
	return p.BaseDelay << uint(attempt)
}

func addSaturating(a, b time.Duration) time.Duration {
	if b > 0 && a > maxDelay-b {
		return maxDelay
	}
	return a + b
}

// Do runs op until it succeeds, fails with a non rate-limit error, or runs out of attempts.
func Do[T any](ctx context.Context, p Policy, op Operation[T]) (T, error) {
	var zero T

	sleep := p.sleep
	if sleep == nil {
		sleep = sleepWithContext
	}
	random := p.rand
	if random == nil {
		random = rand.Float64
	}
	now := p.now
	if now == nil {
		now = time.Now
	}

	var deadline time.Time
	if p.MaxElapsed > 0 {
		deadline = now().Add(p.MaxElapsed)
	}

	for attempt := 0; attempt < p.MaxRetries; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if !IsRateLimited(err) || attempt == p.MaxRetries-1 {
			return zero, err
		}

		delay := addSaturating(p.Backoff(attempt), time.Duration(random()*float64(p.Jitter)))
		if !deadline.IsZero() && now().Add(delay).After(deadline) {
			return zero, err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return zero, serr
		}
	}
	return zero, ErrNoData
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
