// Package collector deduplicates picked photos by id and persists each new
// one to every configured sink.
package collector

import (
	"context"
	"errors"
	"fmt"

	"flickrpicker/pkg/flickr"
	"flickrpicker/pkg/logger"
	"flickrpicker/pkg/metrics"
)

// Outcome of offering a photo
type Outcome int

const (
	Written Outcome = iota
	Duplicate
)

func (o Outcome) String() string {
	if o == Duplicate {
		return "duplicate"
	}
	return "written"
}

// Collector is owned by a single run
type Collector struct {
	seen     SeenSet
	licenses LicenseNamer
	sinks    []RecordSink
	logger   logger.Logger
	metrics  *metrics.Metrics

	written    int
	duplicates int
}

// Option configures a Collector
type Option func(*Collector)

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(c *Collector) { c.logger = log }
}

// WithMetrics counts outcomes on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Collector) { c.metrics = m }
}

// New creates a Collector writing to sinks in order
func New(seen SeenSet, licenses LicenseNamer, sinks []RecordSink, opts ...Option) *Collector {
	c := &Collector{
		seen:     seen,
		licenses: licenses,
		sinks:    sinks,
		logger:   logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithField("component", "collector")
	return c
}

// Offer writes photo unless its id was already offered in this run. A
// duplicate causes no I/O on the sinks.
func (c *Collector) Offer(ctx context.Context, photo *flickr.PhotoInfo, size flickr.Size) (Outcome, error) {
	id := photo.ID.String()
	added, err := c.seen.Add(ctx, id)
	if err != nil {
		return Duplicate, fmt.Errorf("failed to record photo %s: %w", id, err)
	}
	if !added {
		c.duplicates++
		c.count(Duplicate)
		c.logger.DebugWithFields("duplicate photo ignored", map[string]interface{}{
			"photo_id": id,
		})
		return Duplicate, nil
	}

	rec := NewRecord(photo, size, c.licenses)
	for _, sink := range c.sinks {
		if err := sink.Write(ctx, rec); err != nil {
			return Written, fmt.Errorf("failed to write photo %s: %w", id, err)
		}
	}
	c.written++
	c.count(Written)
	c.logger.DebugWithFields("photo recorded", map[string]interface{}{
		"photo_id": id,
		"license":  rec.License,
		"width":    rec.Width,
	})
	return Written, nil
}

func (c *Collector) count(o Outcome) {
	if c.metrics != nil {
		c.metrics.Records.WithLabelValues(o.String()).Inc()
	}
}

// Written returns the number of unique records persisted
func (c *Collector) Written() int {
	return c.written
}

// Duplicates returns the number of ignored duplicates
func (c *Collector) Duplicates() int {
	return c.duplicates
}

// Close closes every sink and returns all close errors joined
func (c *Collector) Close() error {
	var errs []error
	for _, sink := range c.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
