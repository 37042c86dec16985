// Package runner drives a sampling run: it picks photos up to a target count
// and hands each one to the collector.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"flickrpicker/pkg/collector"
	"flickrpicker/pkg/logger"
	"flickrpicker/pkg/picker"
)

// Summary describes a finished run
type Summary struct {
	RunID      string
	Iterations int
	Written    int
	Duplicates int
	// Exhausted is set when a pick ran out of attempts and stopped the run early
	Exhausted bool
	Duration  time.Duration

	// Searches, SearchFailures and CandidateFailures add up the pickers'
	// per-pick stats. They stay zero when the picker does not report them.
	Searches          int
	SearchFailures    int
	CandidateFailures int
}

func (s *Summary) addStats(st picker.Stats) {
	s.Searches += st.Searches
	s.SearchFailures += st.SearchFailures
	s.CandidateFailures += st.CandidateFailures
}

// Runner owns the picker and collector of one run
type Runner struct {
	runID     string
	getNum    int
	picker    PhotoPicker
	collector PhotoCollector
	progress  ProgressReporter
	logger    logger.Logger

	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

// Option configures a Runner
type Option func(*Runner)

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(r *Runner) { r.logger = log }
}

// WithProgress reports every iteration to p
func WithProgress(p ProgressReporter) Option {
	return func(r *Runner) { r.progress = p }
}

// WithCloser registers fn to run after the collector is closed
func WithCloser(fn func() error) Option {
	return func(r *Runner) { r.closers = append(r.closers, fn) }
}

// New creates a Runner making at most getNum picks
func New(runID string, getNum int, p PhotoPicker, c PhotoCollector, opts ...Option) *Runner {
	r := &Runner{
		runID:     runID,
		getNum:    getNum,
		picker:    p,
		collector: c,
		logger:    logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithField("run_id", runID)
	return r
}

// RunID returns the id of this run
func (r *Runner) RunID() string {
	return r.runID
}

// Run performs up to getNum iterations of pick and offer. Exhaustion ends the
// run early without an error. Duplicates use up an iteration. The collector
// is closed before Run returns.
func (r *Runner) Run(ctx context.Context) (summary Summary, err error) {
	start := time.Now()
	summary.RunID = r.runID

	defer func() {
		summary.Duration = time.Since(start)
		err = errors.Join(err, r.Close())
	}()

	logger.LogComponentStart(r.logger, "runner", map[string]interface{}{
		"get_num": r.getNum,
	})

	for i := 0; i < r.getNum; i++ {
		if err := ctx.Err(); err != nil {
			logger.LogComponentStop(r.logger, "runner", "cancelled")
			return summary, err
		}
		summary.Iterations++

		res, err := r.picker.Pick(ctx)
		if sr, ok := r.picker.(StatsReporter); ok {
			summary.addStats(sr.LastStats())
		}
		if errors.Is(err, picker.ErrExhausted) {
			r.logger.WarnWithFields("can't get random photo", map[string]interface{}{
				"iteration": i + 1,
			})
			summary.Exhausted = true
			r.advance("exhausted")
			break
		}
		if err != nil {
			return summary, fmt.Errorf("pick %d: %w", i+1, err)
		}

		outcome, err := r.collector.Offer(ctx, res.Photo, res.Size)
		if err != nil {
			return summary, err
		}
		switch outcome {
		case collector.Written:
			summary.Written++
		case collector.Duplicate:
			summary.Duplicates++
		}
		r.advance(outcome.String())
	}

	r.logger.InfoWithFields("run finished", map[string]interface{}{
		"iterations": summary.Iterations,
		"written":    summary.Written,
		"duplicates": summary.Duplicates,
		"exhausted":  summary.Exhausted,
		"searches":   summary.Searches,
		"failures":   summary.SearchFailures,
	})
	logger.LogComponentStop(r.logger, "runner", "completed")
	return summary, nil
}

func (r *Runner) advance(status string) {
	if r.progress != nil {
		r.progress.Advance(status)
	}
}

// Close closes the collector and every registered closer. It is safe to
// call more than once.
func (r *Runner) Close() error {
	r.closeOnce.Do(func() {
		errs := []error{r.collector.Close()}
		for _, fn := range r.closers {
			errs = append(errs, fn())
		}
		r.closeErr = errors.Join(errs...)
	})
	return r.closeErr
}
