package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsesIsolatedRegistries(t *testing.T) {
	a := New()
	b := New()

	a.Picks.WithLabelValues("success").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Picks.WithLabelValues("success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Picks.WithLabelValues("success")))
}

func TestObserveAPICall(t *testing.T) {
	m := New()
	m.ObserveAPICall("flickr.photos.search", "ok", 150*time.Millisecond)
	m.ObserveAPICall("flickr.photos.search", "ok", 50*time.Millisecond)
	m.ObserveAPICall("flickr.photos.getInfo", "error", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("flickr.photos.search", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("flickr.photos.getInfo", "error")))
}

func TestObserveAPICallNilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.ObserveAPICall("x", "ok", 0) })
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.Records.WithLabelValues("written").Add(3)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `flickrpicker_records_total{outcome="written"} 3`))
}
