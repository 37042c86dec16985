package picker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"flickrpicker/pkg/flickr"
	"flickrpicker/pkg/logger"
	"flickrpicker/pkg/metrics"
	"flickrpicker/pkg/ratelimit"
	"flickrpicker/pkg/sampler"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchReply struct {
	hits []flickr.Candidate
	err  error
}

// fakeSource replays scripted search replies. Detail calls fail for ids in
// badInfo/badSizes.
type fakeSource struct {
	searches []searchReply
	badInfo  map[string]bool
	badSizes map[string]bool
	sizes    map[string][]flickr.Size
	licenses map[string]string

	searchParams []map[string]string
	infoCalls    []string
}

func (f *fakeSource) Search(ctx context.Context, params map[string]string) ([]flickr.Candidate, error) {
	f.searchParams = append(f.searchParams, params)
	if len(f.searches) == 0 {
		return nil, nil
	}
	r := f.searches[0]
	if len(f.searches) > 1 {
		f.searches = f.searches[1:]
	}
	return r.hits, r.err
}

func (f *fakeSource) GetInfo(ctx context.Context, id string) (*flickr.PhotoInfo, error) {
	f.infoCalls = append(f.infoCalls, id)
	if f.badInfo[id] {
		return nil, fmt.Errorf("photo %s not found", id)
	}
	license := "4"
	if l, ok := f.licenses[id]; ok {
		license = l
	}
	return &flickr.PhotoInfo{ID: flickr.FlexString(id), License: flickr.FlexString(license)}, nil
}

func (f *fakeSource) GetSizes(ctx context.Context, id string) ([]flickr.Size, error) {
	if f.badSizes[id] {
		return nil, errors.New("sizes unavailable")
	}
	if s, ok := f.sizes[id]; ok {
		return s, nil
	}
	return []flickr.Size{
		{Label: "Medium", Width: 500, Height: 375, Source: "https://live.staticflickr.com/1/" + id + "_m.jpg"},
		{Label: "Original", Width: 4000, Height: 3000, Source: "https://live.staticflickr.com/1/" + id + "_o.jpg"},
	}, nil
}

type fixedSampler struct{ w sampler.Window }

func (s fixedSampler) Sample() sampler.Window { return s.w }

func hits(ids ...string) []flickr.Candidate {
	out := make([]flickr.Candidate, len(ids))
	for i, id := range ids {
		out[i] = flickr.Candidate{ID: flickr.FlexString(id)}
	}
	return out
}

func newTestPicker(src PhotoSource, wait ratelimit.WaitPolicy, budget int, opts ...Option) *Picker {
	cfg := Config{
		AllowedLicenses: "4,8,9,10",
		SearchExtras:    map[string]string{"media": "photos", "width": "2000"},
		RetryErrorNum:   budget,
	}
	opts = append([]Option{WithLogger(logger.NewTestLogger())}, opts...)
	return New(src, fixedSampler{sampler.Window{Min: 1000, Max: 44200}}, wait, cfg, opts...)
}

func TestPickFirstCandidate(t *testing.T) {
	src := &fakeSource{searches: []searchReply{{hits: hits("1", "2")}}}
	wait := ratelimit.NewCountingWait()
	p := newTestPicker(src, wait, 10)

	res, err := p.Pick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", res.Photo.ID.String())
	assert.Equal(t, "Original", res.Size.Label)
	assert.Equal(t, 4000, res.Size.Width.Int())

	assert.Equal(t, 1, wait.Searches())
	assert.Equal(t, 1, wait.Details())
	assert.Equal(t, []string{"1"}, src.infoCalls)
}

func TestPickSearchParams(t *testing.T) {
	src := &fakeSource{searches: []searchReply{{hits: hits("1")}}}
	p := newTestPicker(src, ratelimit.NewCountingWait(), 10)

	_, err := p.Pick(context.Background())
	require.NoError(t, err)

	require.Len(t, src.searchParams, 1)
	params := src.searchParams[0]
	assert.Equal(t, "1000", params["min_upload_date"])
	assert.Equal(t, "44200", params["max_upload_date"])
	assert.Equal(t, "4,8,9,10", params["license"])
	assert.Equal(t, "photos", params["media"])
	assert.Equal(t, "2000", params["width"])
	assert.Len(t, p.cfg.SearchExtras, 2, "extras must not be modified")
}

func TestPickExhaustsAfterExactBudget(t *testing.T) {
	src := &fakeSource{searches: []searchReply{{err: errors.New("boom")}}}
	wait := ratelimit.NewCountingWait()
	m := metrics.New()
	p := newTestPicker(src, wait, 10, WithMetrics(m))

	res, err := p.Pick(context.Background())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Len(t, src.searchParams, 10)
	assert.Equal(t, 10, wait.Searches())
	assert.Equal(t, 0, wait.Details())
	assert.Equal(t, Stats{Searches: 10, SearchFailures: 10}, p.LastStats())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Picks.WithLabelValues("exhausted")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.SearchFailures.WithLabelValues("error")))
}

func TestPickEmptyResultsConsumeBudget(t *testing.T) {
	src := &fakeSource{searches: []searchReply{{hits: nil}}}
	p := newTestPicker(src, ratelimit.NewCountingWait(), 3)

	_, err := p.Pick(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Len(t, src.searchParams, 3)
}

func TestPickSucceedsOnLastAttempt(t *testing.T) {
	src := &fakeSource{searches: []searchReply{
		{err: errors.New("timeout")},
		{hits: nil},
		{hits: hits("7")},
	}}
	p := newTestPicker(src, ratelimit.NewCountingWait(), 3)

	res, err := p.Pick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "7", res.Photo.ID.String())
	assert.Equal(t, 2, p.LastStats().SearchFailures)
}

func TestPickCandidateFailureDoesNotConsumeBudget(t *testing.T) {
	src := &fakeSource{
		searches: []searchReply{{hits: hits("a", "b", "c", "d")}},
		badInfo:  map[string]bool{"a": true, "b": true},
		badSizes: map[string]bool{"c": true},
	}
	wait := ratelimit.NewCountingWait()
	m := metrics.New()
	// a budget of one search is enough: three skipped candidates cost nothing
	p := newTestPicker(src, wait, 1, WithMetrics(m))

	res, err := p.Pick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "d", res.Photo.ID.String())
	assert.Equal(t, 1, wait.Searches())
	assert.Equal(t, 4, wait.Details())
	assert.Equal(t, Stats{Searches: 1, CandidateFailures: 3}, p.LastStats())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CandidateFailures))
}

func TestPickAllCandidatesFailingCostsOneUnit(t *testing.T) {
	src := &fakeSource{
		searches: []searchReply{
			{hits: hits("x", "y")},
			{hits: hits("z")},
		},
		badInfo: map[string]bool{"x": true, "y": true},
	}
	p := newTestPicker(src, ratelimit.NewCountingWait(), 2)

	res, err := p.Pick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "z", res.Photo.ID.String())
	assert.Equal(t, Stats{Searches: 2, SearchFailures: 1, CandidateFailures: 2}, p.LastStats())
}

func TestPickAllCandidatesFailingExhausts(t *testing.T) {
	src := &fakeSource{
		searches: []searchReply{{hits: hits("x")}},
		badInfo:  map[string]bool{"x": true},
	}
	p := newTestPicker(src, ratelimit.NewCountingWait(), 2)

	_, err := p.Pick(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Len(t, src.searchParams, 2)
}

func TestPickNoSizesSkipsCandidate(t *testing.T) {
	src := &fakeSource{
		searches: []searchReply{{hits: hits("1", "2")}},
		sizes:    map[string][]flickr.Size{"1": {}},
	}
	p := newTestPicker(src, ratelimit.NewCountingWait(), 1)

	res, err := p.Pick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2", res.Photo.ID.String())
}

func TestPickSkipsDisallowedLicense(t *testing.T) {
	src := &fakeSource{
		searches: []searchReply{{hits: hits("1", "2")}},
		licenses: map[string]string{"1": "0"},
	}
	p := newTestPicker(src, ratelimit.NewCountingWait(), 1)

	res, err := p.Pick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2", res.Photo.ID.String())
	assert.Equal(t, "4", res.Photo.License.String())
	assert.Equal(t, Stats{Searches: 1, CandidateFailures: 1}, p.LastStats())
}

func TestPickOnlyDisallowedLicensesExhausts(t *testing.T) {
	src := &fakeSource{
		searches: []searchReply{{hits: hits("1")}},
		licenses: map[string]string{"1": "0"},
	}
	p := newTestPicker(src, ratelimit.NewCountingWait(), 2)

	_, err := p.Pick(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestPickBudgetResetsPerCall(t *testing.T) {
	src := &fakeSource{searches: []searchReply{
		{err: errors.New("e1")},
		{hits: hits("1")},
		{err: errors.New("e2")},
		{hits: hits("2")},
	}}
	p := newTestPicker(src, ratelimit.NewCountingWait(), 2)

	res, err := p.Pick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", res.Photo.ID.String())

	res, err = p.Pick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2", res.Photo.ID.String())
}

func TestPickStateTransitions(t *testing.T) {
	src := &fakeSource{
		searches: []searchReply{{hits: nil}, {hits: hits("bad", "good")}},
		badInfo:  map[string]bool{"bad": true},
	}
	var states []State
	p := newTestPicker(src, ratelimit.NewCountingWait(), 5, WithTransitionHook(func(from, to State) {
		states = append(states, to)
	}))

	_, err := p.Pick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []State{
		StateHasCandidates,
		StateFetchingDetail,
		StateHasCandidates,
		StateFetchingDetail,
		StateSuccess,
	}, states)
}

func TestPickContextCancelled(t *testing.T) {
	src := &fakeSource{searches: []searchReply{{hits: hits("1")}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPicker(src, ratelimit.NewCountingWait(), 10)
	_, err := p.Pick(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, src.searchParams)
}

// cancelOnDetail cancels the pick while waiting for a detail fetch
type cancelOnDetail struct {
	cancel context.CancelFunc
}

func (c cancelOnDetail) SearchWait(ctx context.Context) error { return nil }
func (c cancelOnDetail) DetailWait(ctx context.Context) error {
	c.cancel()
	return ctx.Err()
}

func TestPickCancelledDuringDetailWait(t *testing.T) {
	src := &fakeSource{searches: []searchReply{{hits: hits("1")}}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newTestPicker(src, cancelOnDetail{cancel: cancel}, 10)
	_, err := p.Pick(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, src.infoCalls)
	assert.Equal(t, 0, p.LastStats().CandidateFailures)
}

func TestPickLogsFailures(t *testing.T) {
	log := logger.NewTestLogger()
	src := &fakeSource{searches: []searchReply{{err: errors.New("boom")}}}
	p := newTestPicker(src, ratelimit.NewCountingWait(), 2, WithLogger(log))

	_, _ = p.Pick(context.Background())
	assert.Equal(t, 2, log.CountContaining("search attempt failed"))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "fetching_detail", StateFetchingDetail.String())
	assert.Equal(t, "unknown", State(42).String())
}
