package ratelimit

import (
	"context"
	"sync"
	"time"

	"flickrpicker/pkg/retry"

	"golang.org/x/time/rate"
)

// WaitPolicy gates the two kinds of Flickr calls made while picking
type WaitPolicy interface {
	// SearchWait blocks before a window search
	SearchWait(ctx context.Context) error
	// DetailWait blocks before fetching one candidate's info and sizes
	DetailWait(ctx context.Context) error
}

// FixedWait sleeps Interval before searches and 2*Interval before detail fetches
type FixedWait struct {
	Interval time.Duration
}

// NewFixedWait creates a FixedWait policy
func NewFixedWait(interval time.Duration) *FixedWait {
	return &FixedWait{Interval: interval}
}

// SearchWait blocks for Interval or until ctx is done
func (w *FixedWait) SearchWait(ctx context.Context) error {
	return retry.Wait(ctx, w.Interval)
}

// DetailWait blocks for 2*Interval or until ctx is done
func (w *FixedWait) DetailWait(ctx context.Context) error {
	return retry.Wait(ctx, 2*w.Interval)
}

// CountingWait is a WaitPolicy that only counts calls
type CountingWait struct {
	mu       sync.Mutex
	searches int
	details  int
}

// NewCountingWait creates a CountingWait
func NewCountingWait() *CountingWait {
	return &CountingWait{}
}

func (w *CountingWait) SearchWait(ctx context.Context) error {
	w.mu.Lock()
	w.searches++
	w.mu.Unlock()
	return ctx.Err()
}

func (w *CountingWait) DetailWait(ctx context.Context) error {
	w.mu.Lock()
	w.details++
	w.mu.Unlock()
	return ctx.Err()
}

// Searches returns how many times SearchWait was called
func (w *CountingWait) Searches() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.searches
}

// Details returns how many times DetailWait was called
func (w *CountingWait) Details() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.details
}

// Limiter paces a sequence of requests
type Limiter interface {
	// Wait blocks until the next request may start
	Wait(ctx context.Context) error
}

// IntervalLimiter lets one request through per interval. The first request
// passes immediately.
type IntervalLimiter struct {
	limiter *rate.Limiter
}

// NewIntervalLimiter creates a limiter allowing one request per interval.
// A non-positive interval disables pacing.
func NewIntervalLimiter(interval time.Duration) *IntervalLimiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &IntervalLimiter{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the limiter allows another request
func (l *IntervalLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// NopLimiter never blocks
type NopLimiter struct{}

func (NopLimiter) Wait(ctx context.Context) error { return ctx.Err() }
