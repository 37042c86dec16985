package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"flickrpicker/pkg/collector"
	"flickrpicker/pkg/flickr"
	"flickrpicker/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T) *Store {
	t.Helper()
	s, _ := connectWithLog(t)
	return s
}

func connectWithLog(t *testing.T) (*Store, *logger.TestLogger) {
	t.Helper()
	url := os.Getenv("FLICKRPICKER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("FLICKRPICKER_TEST_DATABASE_URL not set")
	}
	log := logger.NewTestLogger()
	s, err := Connect(context.Background(), url, log)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, log
}

func TestUpsertLicenses(t *testing.T) {
	s := connect(t)
	ctx := context.Background()

	n, err := s.UpsertLicenses(ctx, []flickr.License{
		{ID: "4", Name: "Attribution License", URL: "https://creativecommons.org/licenses/by/2.0/"},
		{ID: "0", Name: "All Rights Reserved"},
		{ID: "x", Name: "bogus"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// second sync updates in place
	_, err = s.UpsertLicenses(ctx, []flickr.License{{ID: "4", Name: "CC BY 2.0"}})
	require.NoError(t, err)

	licenses, err := s.GetLicenses(ctx)
	require.NoError(t, err)
	byID := map[string]flickr.License{}
	for _, l := range licenses {
		byID[l.ID.String()] = l
	}
	assert.Equal(t, "CC BY 2.0", byID["4"].Name)
	assert.Equal(t, "", byID["4"].URL)
	assert.Equal(t, "All Rights Reserved", byID["0"].Name)
}

func TestRecordSink(t *testing.T) {
	s, log := connectWithLog(t)
	ctx := context.Background()
	runID := uuid.NewString()

	sink := s.NewRecordSink(runID)
	rec := collector.Record{ID: "53012345678", License: "Attribution License", Source: "https://x/1.jpg", Width: 4000, Height: 3000}
	require.NoError(t, sink.Write(ctx, rec))
	require.NoError(t, sink.Write(ctx, rec))
	require.NoError(t, sink.Close())
	assert.True(t, log.HasMessage("run mirrored"))

	n, err := s.CountRecords(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestConnectInvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), "postgres://%zz", logger.NewTestLogger())
	assert.Error(t, err)
}

func TestTracerLogsFailedQueries(t *testing.T) {
	log := logger.NewTestLogger()
	tr := &tracer{logger: log}

	ctx := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("relation does not exist")})
	assert.True(t, log.HasMessage("query failed"))

	log.Clear()
	ctx = tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1")})
	assert.Empty(t, log.GetMessages())

	// no start data: ignored
	tr.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
}
