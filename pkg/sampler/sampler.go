// Package sampler draws random upload-time windows between Flickr's launch
// and now.
package sampler

import (
	"math/rand"
	"sync"
	"time"
)

// DefaultWidth is the span of one window
const DefaultWidth = 12 * time.Hour

// DefaultEpoch is the earliest upload time Flickr can return, in local time
func DefaultEpoch() time.Time {
	return time.Date(2004, time.February, 10, 12, 0, 0, 0, time.Local)
}

// Window is a half-open upload range in unix seconds. Max = Min + width.
type Window struct {
	Min int64
	Max int64
}

// Sampler produces independent random windows
type Sampler struct {
	epoch time.Time
	width time.Duration
	now   func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option configures a Sampler
type Option func(*Sampler)

// WithEpoch sets the lower bound of every window
func WithEpoch(epoch time.Time) Option {
	return func(s *Sampler) { s.epoch = epoch }
}

// WithWidth sets the window width. Non-positive values are ignored.
func WithWidth(width time.Duration) Option {
	return func(s *Sampler) {
		if width > 0 {
			s.width = width
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Sampler) { s.now = now }
}

// WithRand sets the random source
func WithRand(rnd *rand.Rand) Option {
	return func(s *Sampler) { s.rnd = rnd }
}

// New creates a Sampler with the Flickr epoch and a 12 hour width unless
// overridden
func New(opts ...Option) *Sampler {
	s := &Sampler{
		epoch: DefaultEpoch(),
		width: DefaultWidth,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// Width returns the configured window width
func (s *Sampler) Width() time.Duration {
	return s.width
}

// Sample draws a window with epoch <= Min <= now-width. When now-width is
// before the epoch the window starts at the epoch.
func (s *Sampler) Sample() Window {
	epoch := s.epoch.Unix()
	width := int64(s.width / time.Second)
	latest := s.now().Unix() - width

	min := epoch
	if span := latest - epoch; span > 0 {
		s.mu.Lock()
		r := s.rnd.Float64()
		s.mu.Unlock()
		min = epoch + int64(r*float64(span))
	}
	return Window{Min: min, Max: min + width}
}
