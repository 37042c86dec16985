// Package downloader fetches the images listed in a picked-photos CSV, one at
// a time, into an output directory.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"time"

	"flickrpicker/pkg/collector"
	"flickrpicker/pkg/config"
	errs "flickrpicker/pkg/errors"
	"flickrpicker/pkg/logger"
	"flickrpicker/pkg/metrics"
	"flickrpicker/pkg/ratelimit"
	"flickrpicker/pkg/retry"
)

// Status of one download
type Status string

const (
	StatusSaved   Status = "saved"
	StatusSkipped Status = "skipped" // non-2xx response
	StatusFailed  Status = "failed"  // transport error after retries
)

// DownloadJob represents a single download task
type DownloadJob struct {
	PhotoID  string
	URL      string
	Filename string
}

// DownloadResult represents the result of a download job
type DownloadResult struct {
	Job        DownloadJob
	Status     Status
	StatusCode int
	Size       int64
	Error      error
	Duration   time.Duration
}

// Summary counts the results of a Run
type Summary struct {
	Total   int
	Saved   int
	Skipped int
	Failed  int
	Bytes   int64
}

// PhotoStorage stores downloaded bytes under a file name
type PhotoStorage interface {
	SaveFile(r io.Reader, name string) (int64, error)
}

// ProgressReporter is told about every finished job
type ProgressReporter interface {
	Advance(status string)
}

// Downloader processes jobs sequentially, paced by a Limiter
type Downloader struct {
	client   *http.Client
	storage  PhotoStorage
	limiter  ratelimit.Limiter
	attempts int
	backoff  retry.BackoffStrategy
	logger   logger.Logger
	metrics  *metrics.Metrics
	progress ProgressReporter
}

// Option configures a Downloader
type Option func(*Downloader)

// WithHTTPClient replaces the HTTP client built from the timeouts
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) { d.client = c }
}

// WithLimiter replaces the interval limiter
func WithLimiter(l ratelimit.Limiter) Option {
	return func(d *Downloader) { d.limiter = l }
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(d *Downloader) { d.logger = log }
}

// WithMetrics counts downloads on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Downloader) { d.metrics = m }
}

// WithProgress reports every job to p
func WithProgress(p ProgressReporter) Option {
	return func(d *Downloader) { d.progress = p }
}

// WithBackoff sets the delay between transport retries
func WithBackoff(b retry.BackoffStrategy) Option {
	return func(d *Downloader) { d.backoff = b }
}

// NewHTTPClient builds a client with separate connect and read timeouts
func NewHTTPClient(connectTimeout, readTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout
	transport.ResponseHeaderTimeout = readTimeout
	return &http.Client{
		Transport: transport,
		Timeout:   connectTimeout + readTimeout,
	}
}

// New creates a Downloader from the download settings
func New(cfg config.DownloadConfig, storage PhotoStorage, opts ...Option) *Downloader {
	d := &Downloader{
		client:   NewHTTPClient(cfg.ConnectTimeout, cfg.ReadTimeout),
		storage:  storage,
		limiter:  ratelimit.NewIntervalLimiter(cfg.Interval),
		attempts: cfg.RetryAttempts,
		backoff:  retry.DefaultExponentialBackoff(),
		logger:   logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.WithField("component", "downloader")
	return d
}

// FilenameFromURL returns the last path segment of rawURL
func FilenameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return "", fmt.Errorf("url %q has no file name", rawURL)
	}
	return name, nil
}

// JobsFromRecords turns CSV records into jobs. Rows without a usable source
// URL are returned separately.
func JobsFromRecords(records []collector.Record) (jobs []DownloadJob, invalid []collector.Record) {
	for _, rec := range records {
		name, err := FilenameFromURL(rec.Source)
		if err != nil || rec.Source == "" {
			invalid = append(invalid, rec)
			continue
		}
		jobs = append(jobs, DownloadJob{PhotoID: rec.ID, URL: rec.Source, Filename: name})
	}
	return jobs, invalid
}

// Run downloads every job in order. Non-2xx responses and transport failures
// are logged and skipped; a storage error or ctx cancellation stops the run.
func (d *Downloader) Run(ctx context.Context, jobs []DownloadJob) (Summary, error) {
	var summary Summary

	logger.LogComponentStart(d.logger, "downloader", map[string]interface{}{
		"jobs": len(jobs),
	})

	for _, job := range jobs {
		if err := d.limiter.Wait(ctx); err != nil {
			return summary, err
		}

		result := d.Download(ctx, job)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return summary, ctxErr
		}

		summary.Total++
		switch result.Status {
		case StatusSaved:
			summary.Saved++
			summary.Bytes += result.Size
		case StatusSkipped:
			summary.Skipped++
		case StatusFailed:
			summary.Failed++
		}
		d.count(result)
		if d.progress != nil {
			d.progress.Advance(string(result.Status))
		}

		var saveErr *saveError
		if errors.As(result.Error, &saveErr) {
			return summary, saveErr.err
		}
	}

	logger.LogComponentStop(d.logger, "downloader", "completed")
	return summary, nil
}

type saveError struct{ err error }

func (e *saveError) Error() string { return e.err.Error() }
func (e *saveError) Unwrap() error { return e.err }

// Download fetches a single job
func (d *Downloader) Download(ctx context.Context, job DownloadJob) DownloadResult {
	start := time.Now()
	result := DownloadResult{Job: job}

	res, err := retry.DoWithResult(ctx, func() (fetchResult, error) {
		return d.fetch(ctx, job)
	}, &retry.Config{
		MaxAttempts: d.attempts,
		Backoff:     d.backoff,
		RetryIf:     retryStatus,
		Logger:      d.logger,
	})
	result.StatusCode = res.code
	result.Size = res.size
	result.Duration = time.Since(start)
	result.Error = err

	var apiErr *errs.Error
	var saveErr *saveError
	switch {
	case err == nil:
		result.Status = StatusSaved
		logger.LogDownload(d.logger, job.URL, job.Filename, result.StatusCode, nil)
	case errors.As(err, &saveErr):
		result.Status = StatusFailed
		d.logger.WithError(err).ErrorWithFields("failed to save image", map[string]interface{}{
			"file": job.Filename,
		})
	case errors.As(err, &apiErr) && apiErr.Code != 0:
		result.Status = StatusSkipped
		d.logger.WarnWithFields(fmt.Sprintf("can't download %s", job.URL), map[string]interface{}{
			"photo_id":    job.PhotoID,
			"status_code": apiErr.Code,
		})
	default:
		result.Status = StatusFailed
		logger.LogDownload(d.logger, job.URL, "", result.StatusCode, err)
	}
	return result
}

// retryStatus retries transport failures and the HTTP statuses worth repeating.
// Storage and cancellation errors are final.
func retryStatus(err error) bool {
	var apiErr *errs.Error
	if !errors.As(err, &apiErr) || apiErr.Type == errs.ErrorTypeUnknown {
		return false
	}
	return errs.IsRetryableStatusCode(apiErr.Code)
}

type fetchResult struct {
	code int
	size int64
}

func (d *Downloader) fetch(ctx context.Context, job DownloadJob) (fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.URL, nil)
	if err != nil {
		return fetchResult{}, errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fetchResult{}, ctxErr
		}
		return fetchResult{}, errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	if code < 200 || code > 299 {
		io.Copy(io.Discard, resp.Body)
		return fetchResult{code: code}, errs.New(errs.TypeForStatus(code), code,
			"unexpected status code: %d", code)
	}

	body := &bodyReader{r: resp.Body}
	n, err := d.storage.SaveFile(body, job.Filename)
	if err != nil {
		if body.err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fetchResult{code: code}, ctxErr
			}
			return fetchResult{}, errs.New(errs.ErrorTypeNetwork, 0, "failed to read image body: %v", body.err)
		}
		return fetchResult{code: code}, &saveError{err: err}
	}
	return fetchResult{code: code, size: n}, nil
}

// bodyReader remembers read failures so they can be told apart from write
// failures
type bodyReader struct {
	r   io.Reader
	err error
}

func (b *bodyReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && err != io.EOF {
		b.err = err
	}
	return n, err
}

func (d *Downloader) count(r DownloadResult) {
	if d.metrics == nil {
		return
	}
	d.metrics.Downloads.WithLabelValues(string(r.Status)).Inc()
	if r.Status == StatusSaved {
		d.metrics.DownloadBytes.Add(float64(r.Size))
	}
}
