package main

import (
	"fmt"
	"os"
	"time"

	"flickrpicker/pkg/logger"
	"flickrpicker/pkg/runner"
	"flickrpicker/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	pickNum          int
	pickOutput       string
	pickLicenses     []string
	pickWaitTime     time.Duration
	pickRetryErrors  int
	pickDedupBackend string
	pickRedisURL     string
	pickDatabaseURL  string
	pickAPIKey       string
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Collect random photos into a CSV file",
	Long: `Pick random photos from Flickr and write one CSV row per unique photo.

Each pick samples a random upload-date window and searches it for photos under
the target licenses. The hits are tried in search order and the first one whose
details can be fetched is kept. The run stops early when a pick exhausts its
retry budget.`,
	Example: `  # Collect 100 photos into photos.csv
  flickrpicker pick

  # Collect 20 photos into a custom file, deduplicating through Redis
  flickrpicker pick -n 20 -o sample.csv --dedup-backend redis --redis-url redis://localhost:6379/0`,
	Args: cobra.NoArgs,
	RunE: runPick,
}

func init() {
	rootCmd.AddCommand(pickCmd)

	pickCmd.Flags().IntVarP(&pickNum, "num", "n", 0, "number of picks (default from config: 100)")
	pickCmd.Flags().StringVarP(&pickOutput, "output", "o", "", "output CSV file (default photos.csv)")
	pickCmd.Flags().StringSliceVar(&pickLicenses, "licenses", nil, "target license names")
	pickCmd.Flags().DurationVar(&pickWaitTime, "wait-time", 0, "pause before each search; detail calls wait twice as long")
	pickCmd.Flags().IntVar(&pickRetryErrors, "retry-error-num", 0, "failed searches allowed per pick")
	pickCmd.Flags().StringVar(&pickDedupBackend, "dedup-backend", "", "seen-id backend: memory or redis")
	pickCmd.Flags().StringVar(&pickRedisURL, "redis-url", "", "Redis URL for the redis dedup backend")
	pickCmd.Flags().StringVar(&pickDatabaseURL, "database-url", "", "mirror records into this Postgres database")
	pickCmd.Flags().StringVar(&pickAPIKey, "api-key", "", "Flickr API key")
}

func pickFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	f := cmd.Flags()
	if f.Changed("num") {
		flags["num"] = pickNum
	}
	if f.Changed("output") {
		flags["output"] = pickOutput
	}
	if f.Changed("licenses") {
		flags["licenses"] = pickLicenses
	}
	if f.Changed("wait-time") {
		flags["wait-time"] = pickWaitTime
	}
	if f.Changed("retry-error-num") {
		flags["retry-error-num"] = pickRetryErrors
	}
	if f.Changed("dedup-backend") {
		flags["dedup-backend"] = pickDedupBackend
	}
	if f.Changed("redis-url") {
		flags["redis-url"] = pickRedisURL
	}
	if f.Changed("database-url") {
		flags["database-url"] = pickDatabaseURL
	}
	if f.Changed("api-key") {
		flags["api-key"] = pickAPIKey
	}
	return flags
}

func runPick(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(pickFlags(cmd), true)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log := logger.GetLogger()
	progress := ui.NewProgress(os.Stderr, "Picking", cfg.Pick.GetNum, !quiet)

	r, err := runner.Open(ctx, cfg, runner.Deps{
		Logger:   log,
		Metrics:  startMetrics(ctx, cfg),
		Progress: progress,
	})
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}

	summary, err := r.Run(ctx)
	progress.Complete()
	if err != nil {
		return err
	}

	printer.Plain("Total %d items", summary.Written)
	printer.Info("Output", cfg.Pick.OutputCSV)
	printer.Info("Run", summary.RunID)
	if summary.Duplicates > 0 {
		printer.Info("Duplicates skipped", fmt.Sprintf("%d", summary.Duplicates))
	}
	if summary.Exhausted {
		printer.Warning("stopped early after %d of %d picks", summary.Iterations, cfg.Pick.GetNum)
	}
	if summary.Searches > 0 {
		printer.Info("Searches", fmt.Sprintf("%d (%d failed, %d candidates skipped)",
			summary.Searches, summary.SearchFailures, summary.CandidateFailures))
	}
	printer.Info("Elapsed", ui.FormatDuration(summary.Duration))

	sendNotification("flickrpicker", fmt.Sprintf("Picked %d photos", summary.Written))
	return nil
}
