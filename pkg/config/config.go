package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the Flickr random picker
type Config struct {
	// Flickr API access and search tuning
	Flickr FlickrConfig `yaml:"flickr" json:"flickr"`

	// Sampling run settings
	Pick PickConfig `yaml:"pick" json:"pick"`

	// Bulk download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Seen-id backend for duplicate suppression
	Dedup DedupConfig `yaml:"dedup" json:"dedup"`

	// Optional Postgres mirror
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Optional Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// FlickrConfig holds Flickr API configuration
type FlickrConfig struct {
	APIKey    string        `yaml:"api_key" json:"api_key"`
	APISecret string        `yaml:"api_secret" json:"api_secret"`
	Endpoint  string        `yaml:"endpoint" json:"endpoint"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`

	// WaitTime is slept before every search; detail fetches wait twice as long.
	// Flickr allows 3600 queries per hour per key.
	WaitTime time.Duration `yaml:"wait_time" json:"wait_time"`

	// RetryErrorNum bounds failed search iterations per pick
	RetryErrorNum int `yaml:"retry_error_num" json:"retry_error_num"`

	// HTTPRetries repeats a single REST call on transient transport errors
	HTTPRetries int `yaml:"http_retries" json:"http_retries"`

	// TargetLicenses are license names as reported by flickr.photos.licenses.getInfo
	TargetLicenses []string `yaml:"target_licenses" json:"target_licenses"`

	// SearchExtras are passed through to flickr.photos.search.
	// min_upload_date and max_upload_date are always overwritten.
	SearchExtras map[string]string `yaml:"search_extras" json:"search_extras"`

	// WindowWidth is the width of each random upload-date window
	WindowWidth time.Duration `yaml:"window_width" json:"window_width"`
}

// PickConfig holds settings for the sampling run
type PickConfig struct {
	GetNum    int    `yaml:"get_num" json:"get_num"`
	OutputCSV string `yaml:"output_csv" json:"output_csv"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	InputCSV       string        `yaml:"input_csv" json:"input_csv"`
	OutputDir      string        `yaml:"output_dir" json:"output_dir"`
	Interval       time.Duration `yaml:"interval" json:"interval"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read_timeout"`
	RetryAttempts  int           `yaml:"retry_attempts" json:"retry_attempts"`
}

// DedupConfig selects where the per-run seen-id set lives
type DedupConfig struct {
	Backend  string        `yaml:"backend" json:"backend"` // memory or redis
	RedisURL string        `yaml:"redis_url" json:"redis_url"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
}

// DatabaseConfig holds the optional Postgres mirror settings
type DatabaseConfig struct {
	URL string `yaml:"url" json:"url"`
}

// MetricsConfig holds the Prometheus listener settings
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultTargetLicenses are the license names sampled when none are configured
var DefaultTargetLicenses = []string{
	"Attribution License",
	"United States Government Work",
	"Public Domain Dedication (CC0)",
	"Public Domain Mark",
}

// DefaultSearchExtras restrict search to photos at least 2000x2000
func DefaultSearchExtras() map[string]string {
	return map[string]string{
		"content_type":          "1", // photos only
		"media":                 "photos",
		"dimension_search_mode": "min",
		"width":                 "2000",
		"height":                "2000",
	}
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Flickr: FlickrConfig{
			Endpoint:       "https://www.flickr.com/services/rest",
			Timeout:        30 * time.Second,
			WaitTime:       1200 * time.Millisecond,
			RetryErrorNum:  10,
			HTTPRetries:    0,
			TargetLicenses: append([]string(nil), DefaultTargetLicenses...),
			SearchExtras:   DefaultSearchExtras(),
			WindowWidth:    12 * time.Hour,
		},
		Pick: PickConfig{
			GetNum:    100,
			OutputCSV: "photos.csv",
		},
		Download: DownloadConfig{
			InputCSV:       "photos.csv",
			OutputDir:      "output",
			Interval:       time.Second,
			ConnectTimeout: 5 * time.Second,
			ReadTimeout:    30 * time.Second,
			RetryAttempts:  1,
		},
		Dedup: DedupConfig{
			Backend: "memory",
			TTL:     24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	// Flickr credentials, both the plain and the prefixed names are honoured
	if v := firstEnv("FLICKRPICKER_API_KEY", "FLICKR_API_KEY"); v != "" {
		c.Flickr.APIKey = v
	}
	if v := firstEnv("FLICKRPICKER_API_SECRET", "FLICKR_API_SECRET"); v != "" {
		c.Flickr.APISecret = v
	}
	if v := firstEnv("FLICKRPICKER_ENDPOINT", "FLICKR_ENDPOINT"); v != "" {
		c.Flickr.Endpoint = v
	}

	if v := os.Getenv("FLICKRPICKER_WAIT_TIME"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FLICKRPICKER_WAIT_TIME: %w", err))
		} else {
			c.Flickr.WaitTime = d
		}
	}
	if v := os.Getenv("FLICKRPICKER_RETRY_ERROR_NUM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FLICKRPICKER_RETRY_ERROR_NUM: %w", err))
		} else {
			c.Flickr.RetryErrorNum = n
		}
	}
	if v := os.Getenv("FLICKRPICKER_TARGET_LICENSES"); v != "" {
		c.Flickr.TargetLicenses = splitList(v)
	}
	if v := os.Getenv("FLICKRPICKER_GET_NUM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FLICKRPICKER_GET_NUM: %w", err))
		} else {
			c.Pick.GetNum = n
		}
	}
	if v := os.Getenv("FLICKRPICKER_OUTPUT_CSV"); v != "" {
		c.Pick.OutputCSV = v
	}
	if v := os.Getenv("FLICKRPICKER_OUTPUT_DIR"); v != "" {
		c.Download.OutputDir = v
	}
	if v := os.Getenv("FLICKRPICKER_DEDUP_BACKEND"); v != "" {
		c.Dedup.Backend = v
	}
	if v := firstEnv("FLICKRPICKER_REDIS_URL", "REDIS_URL"); v != "" {
		c.Dedup.RedisURL = v
	}
	if v := firstEnv("FLICKRPICKER_DATABASE_URL", "DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("FLICKRPICKER_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("FLICKRPICKER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("FLICKRPICKER_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile returns the first existing file among the standard locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"flickrpicker.yaml",
		".flickrpicker.yaml",
		".flickrpicker.yml",
		filepath.Join(home, ".config", "flickrpicker", "config.yaml"),
		filepath.Join(home, ".config", "flickrpicker", "config.yml"),
		filepath.Join(home, ".flickrpicker.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. The API key is not checked
// here because it may still be supplied by the credential store.
func (c *Config) Validate() error {
	var errs []error

	if c.Flickr.Endpoint == "" {
		errs = append(errs, errors.New("flickr endpoint is required"))
	} else if u, err := url.Parse(c.Flickr.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("flickr endpoint %q is not an absolute URL", c.Flickr.Endpoint))
	}
	if c.Flickr.Timeout <= 0 {
		errs = append(errs, errors.New("flickr timeout must be positive"))
	}
	if c.Flickr.WaitTime < 0 {
		errs = append(errs, errors.New("wait time cannot be negative"))
	}
	if c.Flickr.RetryErrorNum <= 0 {
		errs = append(errs, errors.New("retry_error_num must be positive"))
	}
	if c.Flickr.HTTPRetries < 0 {
		errs = append(errs, errors.New("http retries cannot be negative"))
	}
	if len(c.Flickr.TargetLicenses) == 0 {
		errs = append(errs, errors.New("at least one target license is required"))
	}
	if c.Flickr.WindowWidth <= 0 {
		errs = append(errs, errors.New("window width must be positive"))
	}
	for _, reserved := range []string{"min_upload_date", "max_upload_date", "license"} {
		if _, ok := c.Flickr.SearchExtras[reserved]; ok {
			errs = append(errs, fmt.Errorf("search extra %q is set by the sampler", reserved))
		}
	}

	if c.Pick.GetNum < 0 {
		errs = append(errs, errors.New("get_num cannot be negative"))
	}
	if c.Pick.OutputCSV == "" {
		errs = append(errs, errors.New("output csv path is required"))
	}

	if c.Download.OutputDir == "" {
		errs = append(errs, errors.New("download output directory is required"))
	}
	if c.Download.Interval < 0 {
		errs = append(errs, errors.New("download interval cannot be negative"))
	}
	if c.Download.ConnectTimeout <= 0 || c.Download.ReadTimeout <= 0 {
		errs = append(errs, errors.New("download timeouts must be positive"))
	}
	if c.Download.RetryAttempts <= 0 {
		errs = append(errs, errors.New("download retry attempts must be at least 1"))
	}

	switch strings.ToLower(c.Dedup.Backend) {
	case "memory":
	case "redis":
		if c.Dedup.RedisURL == "" {
			errs = append(errs, errors.New("redis dedup backend requires redis_url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown dedup backend %q", c.Dedup.Backend))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["api-key"].(string); ok && v != "" {
		c.Flickr.APIKey = v
	}
	if v, ok := flags["api-secret"].(string); ok && v != "" {
		c.Flickr.APISecret = v
	}
	if v, ok := flags["wait-time"].(time.Duration); ok && v >= 0 {
		c.Flickr.WaitTime = v
	}
	if v, ok := flags["retry-error-num"].(int); ok && v > 0 {
		c.Flickr.RetryErrorNum = v
	}
	if v, ok := flags["licenses"].([]string); ok && len(v) > 0 {
		c.Flickr.TargetLicenses = v
	}
	if v, ok := flags["num"].(int); ok && v >= 0 {
		c.Pick.GetNum = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Pick.OutputCSV = v
	}
	if v, ok := flags["input"].(string); ok && v != "" {
		c.Download.InputCSV = v
	}
	if v, ok := flags["output-dir"].(string); ok && v != "" {
		c.Download.OutputDir = v
	}
	if v, ok := flags["dedup-backend"].(string); ok && v != "" {
		c.Dedup.Backend = v
	}
	if v, ok := flags["redis-url"].(string); ok && v != "" {
		c.Dedup.RedisURL = v
	}
	if v, ok := flags["database-url"].(string); ok && v != "" {
		c.Database.URL = v
	}
	if v, ok := flags["metrics-addr"].(string); ok && v != "" {
		c.Metrics.Addr = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".flickrpicker.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// MaskSecret keeps the first and last four characters of a credential
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// parseSeconds accepts a Go duration ("1.2s") or a bare number of seconds ("1.2")
func parseSeconds(v string) (time.Duration, error) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return time.Duration(f * float64(time.Second)), nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
