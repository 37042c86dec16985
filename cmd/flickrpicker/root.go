package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"flickrpicker/pkg/auth"
	"flickrpicker/pkg/config"
	"flickrpicker/pkg/logger"
	"flickrpicker/pkg/metrics"
	"flickrpicker/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	version   = "0.1.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	metricsAddr string
	profile     string
	quiet       bool
	notify      bool

	printer = ui.NewPrinter(os.Stdout)
)

var rootCmd = &cobra.Command{
	Use:   "flickrpicker",
	Short: "Pick random openly licensed photos from Flickr",
	Long: `flickrpicker samples random upload-date windows on Flickr and collects
photos under a chosen set of licenses into a CSV file, then downloads them.

API credentials are read from (highest priority first):
  - --api-key / FLICKR_API_KEY
  - the config file
  - credentials stored with 'flickrpicker auth login'`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printer.Error("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./flickrpicker.yaml or $HOME/.flickrpicker.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", auth.DefaultProfile, "stored credential profile")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress line")
	rootCmd.PersistentFlags().BoolVar(&notify, "notify", false, "send a desktop notification when done")

	rootCmd.SetVersionTemplate(`flickrpicker {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// globalFlags returns the persistent flags that override configuration
func globalFlags() map[string]interface{} {
	flags := make(map[string]interface{})
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if metricsAddr != "" {
		flags["metrics-addr"] = metricsAddr
	}
	return flags
}

// loadConfig loads configuration, initializes the global logger and fills
// the API key from the credential store when nothing else supplied one.
func loadConfig(flags map[string]interface{}, needKey bool) (*config.Config, error) {
	merged := globalFlags()
	for k, v := range flags {
		merged[k] = v
	}

	cfg, err := config.Load(configFile, merged)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if cfg.Flickr.APIKey == "" {
		if creds, err := storedCredentials(); err == nil {
			cfg.Flickr.APIKey = creds.APIKey
			if cfg.Flickr.APISecret == "" {
				cfg.Flickr.APISecret = creds.APISecret
			}
			logger.WithField("profile", creds.Name).Debug("using stored credentials")
		}
	}
	if needKey && cfg.Flickr.APIKey == "" {
		return nil, errors.New("missing Flickr API key: run 'flickrpicker auth login' or set FLICKR_API_KEY")
	}

	return cfg, nil
}

func storedCredentials() (*auth.Credentials, error) {
	manager, err := auth.NewManager()
	if err != nil {
		return nil, err
	}
	if profile != "" && profile != auth.DefaultProfile {
		return manager.Retrieve(profile)
	}
	return manager.RetrieveDefault()
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// startMetrics serves /metrics in the background when an address is set.
// The returned Metrics is nil otherwise.
func startMetrics(ctx context.Context, cfg *config.Config) *metrics.Metrics {
	if cfg.Metrics.Addr == "" {
		return nil
	}

	m := metrics.New()
	log := logger.WithField("addr", cfg.Metrics.Addr)
	go func() {
		if err := m.Serve(ctx, cfg.Metrics.Addr); err != nil {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	log.Info("serving metrics")
	return m
}

func sendNotification(title, message string) {
	if !notify {
		return
	}
	if err := ui.NewNotifier().Notify(title, message); err != nil {
		logger.WithError(err).Debug("desktop notification failed")
	}
}
