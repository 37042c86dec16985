package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"flickrpicker/pkg/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage flickrpicker configuration files.

Configuration is merged from (highest priority first):
  - Command line flags
  - Environment variables (FLICKRPICKER_*, FLICKR_API_KEY, FLICKR_API_SECRET)
  - .env files
  - Configuration file
  - Default values`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is written to flickrpicker.yaml unless --config names another path.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# flickrpicker configuration
#
# Environment variables override this file: FLICKRPICKER_GET_NUM,
# FLICKRPICKER_WAIT_TIME, FLICKRPICKER_OUTPUT_CSV and friends.
# Prefer 'flickrpicker auth login' or FLICKR_API_KEY over storing the key here.

flickr:
  api_key: ""
  api_secret: ""
  endpoint: "https://www.flickr.com/services/rest"
  timeout: 30s

  # Pause before each search; detail calls wait twice as long.
  # Flickr allows 3600 calls per hour per key.
  wait_time: 1.2s

  # Failed searches allowed for a single pick
  retry_error_num: 10

  # Extra attempts for a single REST call on transient transport errors
  http_retries: 0

  # Width of each random upload-date window
  window_width: 12h

  # License names as reported by flickr.photos.licenses.getInfo
  target_licenses:
    - "Attribution License"
    - "United States Government Work"
    - "Public Domain Dedication (CC0)"
    - "Public Domain Mark"

  # Passed through to flickr.photos.search
  search_extras:
    content_type: "1"
    media: "photos"
    dimension_search_mode: "min"
    width: "2000"
    height: "2000"

pick:
  get_num: 100
  output_csv: "photos.csv"

download:
  input_csv: "photos.csv"
  output_dir: "output"
  interval: 1s
  connect_timeout: 5s
  read_timeout: 30s
  retry_attempts: 1

# memory, or redis to share the seen set between processes
dedup:
  backend: "memory"
  redis_url: ""
  ttl: 24h

# Optional Postgres mirror of picked rows and the license catalog
database:
  url: ""

# Optional Prometheus endpoint, e.g. ":9090"
metrics:
  addr: ""

logging:
  # debug, info, warn, error, disabled
  level: "info"
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = "flickrpicker.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	printer.Success("Configuration file created: " + path)
	printer.Plain("\nNext steps:")
	printer.Plain("1. Run 'flickrpicker auth login' to store your API key")
	printer.Plain("2. Run 'flickrpicker config validate' to check the configuration")
	printer.Plain("3. Start with 'flickrpicker pick -n 10'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil, false)
	if err != nil {
		return err
	}

	display := *cfg
	display.Flickr.APIKey = config.MaskSecret(display.Flickr.APIKey)
	display.Flickr.APISecret = config.MaskSecret(display.Flickr.APISecret)

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	printer.Highlight("Current configuration")
	fmt.Fprint(printer.Writer(), string(data))
	printer.Info("Config file", configSource())
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	printer.Info("Validating", configSource())

	cfg, err := loadConfig(nil, false)
	if err != nil {
		return err
	}

	var problems []error
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Errorf("cannot create log directory: %w", err))
		}
	}
	if err := os.MkdirAll(cfg.Download.OutputDir, 0755); err != nil {
		problems = append(problems, fmt.Errorf("cannot create output directory: %w", err))
	}
	if len(problems) > 0 {
		return errors.Join(problems...)
	}

	if cfg.Flickr.APIKey == "" {
		printer.Warning("no Flickr API key configured")
	}

	printer.Success("Configuration is valid")
	printer.Info("Picks per run", fmt.Sprintf("%d", cfg.Pick.GetNum))
	printer.Info("Wait time", cfg.Flickr.WaitTime.String())
	printer.Info("Retry budget", fmt.Sprintf("%d", cfg.Flickr.RetryErrorNum))
	printer.Info("Dedup backend", cfg.Dedup.Backend)
	printer.Info("Log level", cfg.Logging.Level)
	printer.Info("Output", cfg.Pick.OutputCSV+" -> "+cfg.Download.OutputDir)
	printer.Info("Download pacing", cfg.Download.Interval.String())
	return nil
}

func configSource() string {
	if configFile != "" {
		return configFile
	}
	if found := config.FindConfigFile(); found != "" {
		return found
	}
	return "(none, using defaults)"
}
