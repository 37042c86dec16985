// Package metrics exposes Prometheus counters for picking and downloading.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all collectors of one process. Construct it with New so that
// tests can register against their own registry.
type Metrics struct {
	registry *prometheus.Registry

	APIRequests       *prometheus.CounterVec   // method, status
	APIDuration       *prometheus.HistogramVec // method
	Picks             *prometheus.CounterVec   // outcome: success, exhausted
	SearchFailures    *prometheus.CounterVec   // reason: error, empty, candidates
	CandidateFailures prometheus.Counter
	Records           *prometheus.CounterVec // outcome: written, duplicate
	Downloads         *prometheus.CounterVec // status: saved, skipped, failed
	DownloadBytes     prometheus.Counter
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		APIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flickrpicker_api_requests_total",
				Help: "Flickr REST calls by method and outcome.",
			},
			[]string{"method", "status"},
		),
		APIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flickrpicker_api_request_duration_seconds",
				Help:    "Duration of Flickr REST calls.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		Picks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flickrpicker_picks_total",
				Help: "Pick operations by terminal outcome.",
			},
			[]string{"outcome"},
		),
		SearchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flickrpicker_search_failures_total",
				Help: "Failed search iterations, each consuming one unit of attempt budget.",
			},
			[]string{"reason"},
		),
		CandidateFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "flickrpicker_candidate_failures_total",
				Help: "Candidates skipped because their detail fetch failed.",
			},
		),
		Records: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flickrpicker_records_total",
				Help: "Picked photos offered to the collector by outcome.",
			},
			[]string{"outcome"},
		),
		Downloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flickrpicker_downloads_total",
				Help: "Download attempts by status.",
			},
			[]string{"status"},
		),
		DownloadBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "flickrpicker_download_bytes_total",
				Help: "Bytes written by the download stage.",
			},
		),
	}
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAPICall records one REST call
func (m *Metrics) ObserveAPICall(method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(method, status).Inc()
	m.APIDuration.WithLabelValues(method).Observe(d.Seconds())
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
