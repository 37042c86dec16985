package flickr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"flickrpicker/pkg/config"
	errs "flickrpicker/pkg/errors"
	"flickrpicker/pkg/logger"
	"flickrpicker/pkg/retry"
)

const (
	DefaultEndpoint = "https://www.flickr.com/services/rest"

	MethodSearch      = "flickr.photos.search"
	MethodGetInfo     = "flickr.photos.getInfo"
	MethodGetSizes    = "flickr.photos.getSizes"
	MethodLicenseInfo = "flickr.photos.licenses.getInfo"
)

// Observer receives one event per REST call
type Observer interface {
	ObserveAPICall(method, status string, d time.Duration)
}

// Client calls the Flickr REST API
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	logger     logger.Logger
	observer   Observer
	retries    int
	backoff    retry.BackoffStrategy
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithEndpoint overrides the REST endpoint, mostly for tests
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = strings.TrimRight(endpoint, "/") }
}

// WithObserver reports every call to o
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithBackoff sets the delay strategy between transport retries
func WithBackoff(b retry.BackoffStrategy) Option {
	return func(c *Client) { c.backoff = b }
}

// NewClient creates a new Flickr API client
func NewClient(cfg config.FlickrConfig, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     cfg.APIKey,
		logger:     log.WithField("component", "flickr"),
		retries:    cfg.HTTPRetries,
		backoff:    retry.DefaultExponentialBackoff(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call invokes method with params and decodes the JSON body into out.
// params is not modified.
func (c *Client) Call(ctx context.Context, method string, params map[string]string, out interface{}) error {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set("method", method)
	query.Set("api_key", c.apiKey)
	query.Set("format", "json")
	query.Set("nojsoncallback", "1")

	target := c.endpoint + "?" + query.Encode()

	return retry.Do(ctx, func() error {
		return c.doCall(ctx, method, target, out)
	}, &retry.Config{
		MaxAttempts: 1 + c.retries,
		Backoff:     c.backoff,
		Logger:      c.logger.WithField("method", method),
	})
}

func (c *Client) doCall(ctx context.Context, method, target string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.observe(method, "network_error", duration)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   method,
			"error":    err.Error(),
			"duration": duration,
		})
		return errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}
	defer resp.Body.Close()

	logger.LogAPICall(c.logger, method, resp.StatusCode, duration)

	if err := c.checkResponseStatus(method, resp); err != nil {
		c.observe(method, "http_error", duration)
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(method, "network_error", duration)
		return errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.observe(method, "parse_error", duration)
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"method":       method,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview(body),
		})
		return errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON: %v", err)
	}
	if env.Stat != "ok" {
		c.observe(method, "fail", duration)
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("unexpected stat %q", env.Stat)
		}
		c.logger.WarnWithFields("flickr returned failure", map[string]interface{}{
			"method":  method,
			"code":    env.Code.Int(),
			"message": msg,
		})
		return errs.New(errs.ErrorTypeAPI, env.Code.Int(), "%s: %s", method, msg)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			c.observe(method, "parse_error", duration)
			c.logger.ErrorWithFields("failed to decode response", map[string]interface{}{
				"method":       method,
				"error":        err.Error(),
				"body_preview": preview(body),
			})
			return errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to decode %s: %v", method, err)
		}
	}

	c.observe(method, "ok", duration)
	return nil
}

// checkResponseStatus maps non-200 responses onto typed errors
func (c *Client) checkResponseStatus(method string, resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	fields := map[string]interface{}{
		"method": method,
		"status": resp.StatusCode,
	}
	errType := errs.TypeForStatus(resp.StatusCode)
	switch errType {
	case errs.ErrorTypeAuth:
		c.logger.WarnWithFields("authentication error", fields)
		return errs.New(errType, resp.StatusCode, "invalid or missing API key")
	case errs.ErrorTypeNotFound:
		c.logger.WarnWithFields("resource not found", fields)
		return errs.New(errType, resp.StatusCode, "resource not found")
	case errs.ErrorTypeRateLimit:
		c.logger.WarnWithFields("rate limit exceeded", fields)
		return errs.New(errType, resp.StatusCode, "rate limit exceeded")
	case errs.ErrorTypeServerError:
		c.logger.ErrorWithFields("server error", fields)
		return errs.New(errType, resp.StatusCode, "server error")
	default:
		c.logger.ErrorWithFields("unexpected API status", fields)
		return errs.New(errs.ErrorTypeUnknown, resp.StatusCode, "unexpected status code: %d", resp.StatusCode)
	}
}

func (c *Client) observe(method, status string, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveAPICall(method, status, d)
	}
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// GetLicenses fetches the license catalog
func (c *Client) GetLicenses(ctx context.Context) ([]License, error) {
	var resp licensesResponse
	if err := c.Call(ctx, MethodLicenseInfo, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Licenses.License, nil
}

// Search runs flickr.photos.search and returns the hits of the first page
func (c *Client) Search(ctx context.Context, params map[string]string) ([]Candidate, error) {
	var resp searchResponse
	if err := c.Call(ctx, MethodSearch, params, &resp); err != nil {
		return nil, err
	}
	c.logger.DebugWithFields("search completed", map[string]interface{}{
		"hits":  len(resp.Photos.Photo),
		"total": resp.Photos.Total.Int(),
	})
	return resp.Photos.Photo, nil
}

// GetInfo fetches the metadata of one photo
func (c *Client) GetInfo(ctx context.Context, photoID string) (*PhotoInfo, error) {
	var resp infoResponse
	if err := c.Call(ctx, MethodGetInfo, map[string]string{"photo_id": photoID}, &resp); err != nil {
		return nil, err
	}
	return &resp.Photo, nil
}

// GetSizes lists the available renditions of one photo
func (c *Client) GetSizes(ctx context.Context, photoID string) ([]Size, error) {
	var resp sizesResponse
	if err := c.Call(ctx, MethodGetSizes, map[string]string{"photo_id": photoID}, &resp); err != nil {
		return nil, err
	}
	return resp.Sizes.Size, nil
}
