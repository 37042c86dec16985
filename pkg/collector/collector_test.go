package collector

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"flickrpicker/pkg/flickr"
	"flickrpicker/pkg/license"
	"flickrpicker/pkg/logger"
	"flickrpicker/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLicenses() *license.Registry {
	return license.NewRegistryFromLicenses([]flickr.License{
		{ID: "4", Name: "Attribution License"},
		{ID: "9", Name: "Public Domain Dedication (CC0)"},
	})
}

func photo(id, lic string) *flickr.PhotoInfo {
	p := &flickr.PhotoInfo{
		ID:           flickr.FlexString(id),
		License:      flickr.FlexString(lic),
		Rotation:     "0",
		DateUploaded: "1700000000",
		Owner:        flickr.Owner{Username: "alice"},
		Dates:        flickr.Dates{Taken: "2023-11-14 10:00:00", TakenUnknown: "0"},
	}
	p.URLs.URL = []flickr.PhotoURL{{Type: "photopage", Content: "https://www.flickr.com/photos/alice/" + id + "/"}}
	return p
}

func size(id string) flickr.Size {
	return flickr.Size{Label: "Original", Width: 4000, Height: 3000, Source: "https://live.staticflickr.com/1/" + id + "_o.jpg"}
}

type memorySink struct {
	records []Record
	err     error
	closed  bool
}

func (s *memorySink) Write(ctx context.Context, rec Record) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memorySink) Close() error {
	s.closed = true
	return nil
}

func TestNewRecord(t *testing.T) {
	rec := NewRecord(photo("123", "9"), size("123"), testLicenses())

	want := time.Unix(1700000000, 0).In(time.Local).Format("2006-01-02 15:04:05")
	assert.Equal(t, Record{
		ID:           "123",
		License:      "Public Domain Dedication (CC0)",
		Owner:        "alice",
		URL:          "https://www.flickr.com/photos/alice/123/",
		Source:       "https://live.staticflickr.com/1/123_o.jpg",
		Rotation:     "0",
		Width:        4000,
		Height:       3000,
		DateUploaded: want,
		DateTaken:    "2023-11-14 10:00:00",
		TakenUnknown: "0",
	}, rec)
	assert.Len(t, rec.Row(), len(Header))
}

func TestNewRecordUnknownLicenseKeepsID(t *testing.T) {
	rec := NewRecord(photo("1", "42"), size("1"), testLicenses())
	assert.Equal(t, "42", rec.License)
}

func TestOfferDeduplicates(t *testing.T) {
	sink := &memorySink{}
	m := metrics.New()
	c := New(NewMemorySeenSet(), testLicenses(), []RecordSink{sink},
		WithLogger(logger.NewTestLogger()), WithMetrics(m))
	ctx := context.Background()

	out, err := c.Offer(ctx, photo("1", "4"), size("1"))
	require.NoError(t, err)
	assert.Equal(t, Written, out)

	out, err = c.Offer(ctx, photo("1", "4"), size("1"))
	require.NoError(t, err)
	assert.Equal(t, Duplicate, out)

	out, err = c.Offer(ctx, photo("2", "4"), size("2"))
	require.NoError(t, err)
	assert.Equal(t, Written, out)

	require.Len(t, sink.records, 2)
	assert.Equal(t, "1", sink.records[0].ID)
	assert.Equal(t, "2", sink.records[1].ID)
	assert.Equal(t, 2, c.Written())
	assert.Equal(t, 1, c.Duplicates())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Records.WithLabelValues("duplicate")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Records.WithLabelValues("written")))
}

func TestOfferWritesEverySink(t *testing.T) {
	a, b := &memorySink{}, &memorySink{}
	c := New(NewMemorySeenSet(), testLicenses(), []RecordSink{a, b}, WithLogger(logger.NewTestLogger()))

	_, err := c.Offer(context.Background(), photo("1", "4"), size("1"))
	require.NoError(t, err)
	assert.Len(t, a.records, 1)
	assert.Len(t, b.records, 1)

	require.NoError(t, c.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestOfferSinkError(t *testing.T) {
	sink := &memorySink{err: errors.New("disk full")}
	c := New(NewMemorySeenSet(), testLicenses(), []RecordSink{sink}, WithLogger(logger.NewTestLogger()))

	_, err := c.Offer(context.Background(), photo("1", "4"), size("1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 0, c.Written())
}

type failingSeen struct{}

func (failingSeen) Add(ctx context.Context, id string) (bool, error) {
	return false, errors.New("connection refused")
}

func TestOfferSeenSetError(t *testing.T) {
	sink := &memorySink{}
	c := New(failingSeen{}, testLicenses(), []RecordSink{sink}, WithLogger(logger.NewTestLogger()))

	_, err := c.Offer(context.Background(), photo("1", "4"), size("1"))
	require.Error(t, err)
	assert.Empty(t, sink.records)
}

func TestCSVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "photos.csv")
	sink, err := NewCSVSink(path)
	require.NoError(t, err)

	c := New(NewMemorySeenSet(), testLicenses(), []RecordSink{sink}, WithLogger(logger.NewTestLogger()))
	ctx := context.Background()

	_, err = c.Offer(ctx, photo("1", "4"), size("1"))
	require.NoError(t, err)

	// flushed per row: readable before Close
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(Header, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,Attribution License,alice,"))

	_, err = c.Offer(ctx, photo("1", "4"), size("1"))
	require.NoError(t, err)
	_, err = c.Offer(ctx, photo("2", "9"), size("2"))
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.Equal(t, 2, sink.Rows())

	records, err := ReadCSVFile(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Public Domain Dedication (CC0)", records[1].License)
	assert.Equal(t, "https://live.staticflickr.com/1/2_o.jpg", records[1].Source)
	assert.Equal(t, 4000, records[1].Width)
}

func TestCSVSinkQuotesOnlyWhenNeeded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photos.csv")
	sink, err := NewCSVSink(path)
	require.NoError(t, err)

	p := photo("1", "4")
	p.Owner.Username = "Smith, Jane"
	require.NoError(t, sink.Write(context.Background(), NewRecord(p, size("1"), testLicenses())))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `,"Smith, Jane",`)
	assert.NotContains(t, string(data), `"Attribution License"`)
}

func TestCSVSinkTruncatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photos.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale\nrows\nhere\n"), 0644))

	sink, err := NewCSVSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(Header, ",")+"\n", string(data))
}

func TestNewCSVSinkUnopenable(t *testing.T) {
	dir := t.TempDir()
	_, err := NewCSVSink(dir)
	assert.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	input := "source,id,width\nhttps://x/1.jpg,1,2048\nhttps://x/2.jpg,2\n"
	records, err := ReadCSV(bytes.NewBufferString(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, Record{ID: "1", Source: "https://x/1.jpg", Width: 2048}, records[0])
	assert.Equal(t, "2", records[1].ID)
	assert.Equal(t, 0, records[1].Width)
}

func TestReadCSVRejectsBadDimensions(t *testing.T) {
	input := "source,id,width,height\nhttps://x/1.jpg,1,2048,1536\nhttps://x/2.jpg,2,wide,1536\n"
	records, err := ReadCSV(bytes.NewBufferString(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv row 2: invalid width")
	require.Len(t, records, 1)
	assert.Equal(t, 1536, records[0].Height)

	_, err = ReadCSV(bytes.NewBufferString("source,height\nhttps://x/1.jpg,-\n"))
	assert.ErrorContains(t, err, "invalid height")
}

func TestReadCSVEmptyAndMissingSource(t *testing.T) {
	records, err := ReadCSV(bytes.NewBufferString(""))
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = ReadCSV(bytes.NewBufferString("id,url\n1,x\n"))
	assert.Error(t, err)
}

func TestMemorySeenSet(t *testing.T) {
	s := NewMemorySeenSet()
	ctx := context.Background()

	added, err := s.Add(ctx, "1")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Add(ctx, "1")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, s.Len())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "written", Written.String())
	assert.Equal(t, "duplicate", Duplicate.String())
}
