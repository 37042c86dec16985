package sampler

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSampleWithinBounds(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local)
	s := New(WithClock(fixedClock(now)), WithRand(rand.New(rand.NewSource(1))))

	epoch := DefaultEpoch().Unix()
	width := int64(DefaultWidth / time.Second)
	for i := 0; i < 10000; i++ {
		w := s.Sample()
		assert.GreaterOrEqual(t, w.Min, epoch)
		assert.LessOrEqual(t, w.Min, now.Unix()-width)
		assert.Equal(t, w.Min+width, w.Max)
	}
}

func TestSampleIsDeterministicForSeed(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local)
	a := New(WithClock(fixedClock(now)), WithRand(rand.New(rand.NewSource(42))))
	b := New(WithClock(fixedClock(now)), WithRand(rand.New(rand.NewSource(42))))

	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Sample(), b.Sample())
	}
}

func TestSampleCallsAreIndependent(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local)
	s := New(WithClock(fixedClock(now)), WithRand(rand.New(rand.NewSource(7))))

	seen := map[int64]bool{}
	for i := 0; i < 100; i++ {
		seen[s.Sample().Min] = true
	}
	assert.Greater(t, len(seen), 90)
}

// zeroSource makes Float64 always return 0
type zeroSource struct{}

func (zeroSource) Int63() int64 { return 0 }
func (zeroSource) Seed(int64)   {}

func TestSampleFormula(t *testing.T) {
	epoch := time.Unix(1000, 0)
	now := time.Unix(1000+3600+10000, 0)
	s := New(
		WithEpoch(epoch),
		WithWidth(time.Hour),
		WithClock(fixedClock(now)),
		WithRand(rand.New(zeroSource{})),
	)
	assert.Equal(t, Window{Min: 1000, Max: 4600}, s.Sample())
}

func TestSampleBeforeEpochPlusWidth(t *testing.T) {
	epoch := time.Unix(1_000_000, 0)
	s := New(
		WithEpoch(epoch),
		WithWidth(12*time.Hour),
		WithClock(fixedClock(epoch.Add(time.Hour))),
	)

	w := s.Sample()
	assert.Equal(t, epoch.Unix(), w.Min)
	assert.Equal(t, epoch.Unix()+12*3600, w.Max)
}

func TestWithWidthIgnoresNonPositive(t *testing.T) {
	s := New(WithWidth(0))
	assert.Equal(t, DefaultWidth, s.Width())
}

func TestDefaultEpoch(t *testing.T) {
	e := DefaultEpoch()
	assert.Equal(t, 2004, e.Year())
	assert.Equal(t, time.February, e.Month())
	assert.Equal(t, 10, e.Day())
	assert.Equal(t, 12, e.Hour())
}
