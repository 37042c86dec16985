// Package picker finds one license-permitted photo in a random upload window,
// retrying with fresh windows within a bounded budget of failed searches.
package picker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"flickrpicker/pkg/flickr"
	"flickrpicker/pkg/logger"
	"flickrpicker/pkg/metrics"
	"flickrpicker/pkg/ratelimit"
)

var (
	// ErrExhausted is returned when every search in the budget failed
	ErrExhausted = errors.New("can't get random photo")
	// ErrNoPhotos marks a search that returned no hits
	ErrNoPhotos = errors.New("no photos in window")
	// errAllCandidatesFailed marks a search whose hits all failed detail fetches
	errAllCandidatesFailed = errors.New("no candidate could be fetched")
	// ErrLicenseNotAllowed marks a candidate whose license is outside the allowed set
	ErrLicenseNotAllowed = errors.New("license not allowed")
)

// DefaultRetryErrorNum is the default attempt budget
const DefaultRetryErrorNum = 10

// State of a single Pick
type State int

const (
	StateSearching State = iota
	StateHasCandidates
	StateFetchingDetail
	StateSuccess
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateHasCandidates:
		return "has_candidates"
	case StateFetchingDetail:
		return "fetching_detail"
	case StateSuccess:
		return "success"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Result is a picked photo together with its widest rendition
type Result struct {
	Photo *flickr.PhotoInfo
	Size  flickr.Size
}

// Stats describes the failures seen during the last Pick
type Stats struct {
	Searches          int
	SearchFailures    int
	CandidateFailures int
}

// Config holds the search parameters of a picker
type Config struct {
	// AllowedLicenses is the comma-joined license id list sent as "license"
	AllowedLicenses string
	// SearchExtras are added to every search
	SearchExtras map[string]string
	// RetryErrorNum is the number of failed searches allowed per Pick
	RetryErrorNum int
}

// Picker runs the search/detail state machine
type Picker struct {
	source  PhotoSource
	sampler WindowSampler
	wait    ratelimit.WaitPolicy
	cfg     Config
	allowed map[string]bool
	logger  logger.Logger
	metrics *metrics.Metrics

	onTransition func(from, to State)
	lastStats    Stats
}

// Option configures a Picker
type Option func(*Picker)

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(p *Picker) { p.logger = log }
}

// WithMetrics reports pick outcomes to m
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Picker) { p.metrics = m }
}

// WithTransitionHook calls fn on every state change
func WithTransitionHook(fn func(from, to State)) Option {
	return func(p *Picker) { p.onTransition = fn }
}

// New creates a Picker
func New(source PhotoSource, smp WindowSampler, wait ratelimit.WaitPolicy, cfg Config, opts ...Option) *Picker {
	p := &Picker{
		source:  source,
		sampler: smp,
		wait:    wait,
		cfg:     cfg,
		allowed: make(map[string]bool),
		logger:  logger.GetLogger(),
	}
	for _, id := range strings.Split(cfg.AllowedLicenses, ",") {
		if id = strings.TrimSpace(id); id != "" {
			p.allowed[id] = true
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithField("component", "picker")
	return p
}

// LastStats returns the counters of the most recent Pick
func (p *Picker) LastStats() Stats {
	return p.lastStats
}

// Pick returns one photo. The attempt budget starts afresh on every call.
// It returns ErrExhausted once RetryErrorNum searches failed, and ctx.Err()
// when ctx is done.
func (p *Picker) Pick(ctx context.Context) (*Result, error) {
	budget := p.cfg.RetryErrorNum
	stats := Stats{}
	defer func() { p.lastStats = stats }()

	var (
		state      = StateSearching
		candidates []flickr.Candidate
		next       int
		result     *Result
	)

	transition := func(to State) {
		if p.onTransition != nil {
			p.onTransition(state, to)
		}
		state = to
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch state {
		case StateSearching:
			if budget <= 0 {
				transition(StateExhausted)
				continue
			}
			hits, err := p.search(ctx)
			stats.Searches++
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				budget--
				p.searchFailed(&stats, "error", err, budget)
				continue
			}
			if len(hits) == 0 {
				budget--
				p.searchFailed(&stats, "empty", ErrNoPhotos, budget)
				continue
			}
			candidates, next = hits, 0
			transition(StateHasCandidates)

		case StateHasCandidates:
			if next >= len(candidates) {
				budget--
				p.searchFailed(&stats, "candidates", errAllCandidatesFailed, budget)
				transition(StateSearching)
				continue
			}
			transition(StateFetchingDetail)

		case StateFetchingDetail:
			cand := candidates[next]
			next++
			res, err := p.fetchDetail(ctx, cand.ID.String())
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				stats.CandidateFailures++
				if p.metrics != nil {
					p.metrics.CandidateFailures.Inc()
				}
				p.logger.WarnWithFields("candidate skipped", map[string]interface{}{
					"photo_id": cand.ID.String(),
					"error":    err.Error(),
				})
				transition(StateHasCandidates)
				continue
			}
			result = res
			transition(StateSuccess)

		case StateSuccess:
			if p.metrics != nil {
				p.metrics.Picks.WithLabelValues("success").Inc()
			}
			p.logger.DebugWithFields("photo picked", map[string]interface{}{
				"photo_id": result.Photo.ID.String(),
				"width":    result.Size.Width.Int(),
				"searches": stats.Searches,
			})
			return result, nil

		case StateExhausted:
			if p.metrics != nil {
				p.metrics.Picks.WithLabelValues("exhausted").Inc()
			}
			return nil, fmt.Errorf("%w after %d failed searches", ErrExhausted, stats.SearchFailures)
		}
	}
}

func (p *Picker) search(ctx context.Context) ([]flickr.Candidate, error) {
	if err := p.wait.SearchWait(ctx); err != nil {
		return nil, err
	}

	window := p.sampler.Sample()
	params := make(map[string]string, len(p.cfg.SearchExtras)+3)
	for k, v := range p.cfg.SearchExtras {
		params[k] = v
	}
	params["min_upload_date"] = strconv.FormatInt(window.Min, 10)
	params["max_upload_date"] = strconv.FormatInt(window.Max, 10)
	params["license"] = p.cfg.AllowedLicenses

	p.logger.DebugWithFields("searching window", map[string]interface{}{
		"min_upload_date": window.Min,
		"max_upload_date": window.Max,
	})
	return p.source.Search(ctx, params)
}

func (p *Picker) fetchDetail(ctx context.Context, photoID string) (*Result, error) {
	if err := p.wait.DetailWait(ctx); err != nil {
		return nil, err
	}

	info, err := p.source.GetInfo(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("get info: %w", err)
	}
	if len(p.allowed) > 0 && !p.allowed[info.License.String()] {
		return nil, fmt.Errorf("photo %s has license %s: %w", photoID, info.License.String(), ErrLicenseNotAllowed)
	}
	sizes, err := p.source.GetSizes(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("get sizes: %w", err)
	}
	size, ok := flickr.LargestSize(sizes)
	if !ok {
		return nil, fmt.Errorf("photo %s has no sizes", photoID)
	}
	return &Result{Photo: info, Size: size}, nil
}

func (p *Picker) searchFailed(stats *Stats, reason string, err error, remaining int) {
	stats.SearchFailures++
	if p.metrics != nil {
		p.metrics.SearchFailures.WithLabelValues(reason).Inc()
	}
	p.logger.WarnWithFields("search attempt failed", map[string]interface{}{
		"reason":    reason,
		"error":     err.Error(),
		"remaining": remaining,
	})
}
