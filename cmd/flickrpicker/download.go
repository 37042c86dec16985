package main

import (
	"fmt"
	"os"
	"time"

	"flickrpicker/internal/downloader"
	"flickrpicker/pkg/collector"
	"flickrpicker/pkg/logger"
	"flickrpicker/pkg/storage"
	"flickrpicker/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	downloadInput     string
	downloadOutputDir string
	downloadInterval  time.Duration
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the photos listed in a CSV file",
	Long: `Download every photo in the source column of a CSV written by 'pick'.

Files are named after the last segment of their URL and overwrite existing
files of the same name. Responses other than 200 are logged and skipped.`,
	Example: `  flickrpicker download --input photos.csv --output-dir output`,
	Args:    cobra.NoArgs,
	RunE:    runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringVarP(&downloadInput, "input", "i", "", "CSV file to read (default photos.csv)")
	downloadCmd.Flags().StringVarP(&downloadOutputDir, "output-dir", "o", "", "directory for downloaded files (default output)")
	downloadCmd.Flags().DurationVar(&downloadInterval, "interval", 0, "minimum gap between downloads (default 1s)")
}

func runDownload(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("input") {
		flags["input"] = downloadInput
	}
	if cmd.Flags().Changed("output-dir") {
		flags["output-dir"] = downloadOutputDir
	}

	cfg, err := loadConfig(flags, false)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("interval") {
		cfg.Download.Interval = downloadInterval
	}

	ctx, cancel := signalContext()
	defer cancel()

	records, err := collector.ReadCSVFile(cfg.Download.InputCSV)
	if err != nil {
		return err
	}
	jobs, invalid := downloader.JobsFromRecords(records)
	for _, rec := range invalid {
		logger.WithField("id", rec.ID).WithField("source", rec.Source).Warn("row has no downloadable source")
	}

	mgr, err := storage.NewManager(cfg.Download.OutputDir)
	if err != nil {
		return err
	}

	progress := ui.NewProgress(os.Stderr, "Downloading", len(jobs), !quiet)
	d := downloader.New(cfg.Download, mgr,
		downloader.WithLogger(logger.GetLogger()),
		downloader.WithMetrics(startMetrics(ctx, cfg)),
		downloader.WithProgress(progress),
	)

	summary, err := d.Run(ctx, jobs)
	progress.Complete()
	if err != nil {
		return fmt.Errorf("download stopped after %d of %d files: %w", summary.Total, len(jobs), err)
	}

	printer.Success(fmt.Sprintf("Saved %d of %d files to %s", summary.Saved, len(jobs), mgr.GetOutputDir()))
	printer.Info("Downloaded", ui.FormatBytes(summary.Bytes))
	if summary.Skipped > 0 || summary.Failed > 0 {
		printer.Warning("%d skipped, %d failed", summary.Skipped, summary.Failed)
	}

	sendNotification("flickrpicker", fmt.Sprintf("Downloaded %d photos", summary.Saved))
	return nil
}
