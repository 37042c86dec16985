package main

import (
	"fmt"
	"strings"

	"flickrpicker/pkg/flickr"
	"flickrpicker/pkg/license"
	"flickrpicker/pkg/logger"
	"flickrpicker/pkg/store"

	"github.com/spf13/cobra"
)

var (
	licensesSync        bool
	licensesDatabaseURL string
)

var licensesCmd = &cobra.Command{
	Use:   "licenses",
	Short: "List the Flickr license catalog",
	Long: `Fetch the license catalog from Flickr and mark the licenses the pick
command will search for. With --sync the catalog is also written to the
configured Postgres database.`,
	Args: cobra.NoArgs,
	RunE: runLicenses,
}

func init() {
	rootCmd.AddCommand(licensesCmd)

	licensesCmd.Flags().BoolVar(&licensesSync, "sync", false, "upsert the catalog into Postgres")
	licensesCmd.Flags().StringVar(&licensesDatabaseURL, "database-url", "", "Postgres URL (default from config)")
}

func runLicenses(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("database-url") {
		flags["database-url"] = licensesDatabaseURL
	}

	cfg, err := loadConfig(flags, true)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log := logger.GetLogger()
	client := flickr.NewClient(cfg.Flickr, log)
	registry, err := license.NewRegistry(ctx, client)
	if err != nil {
		return err
	}

	allowed := make(map[string]bool)
	for _, id := range strings.Split(registry.ResolveAllowedIDs(cfg.Flickr.TargetLicenses), ",") {
		if id != "" {
			allowed[id] = true
		}
	}

	printer.Highlight("Flickr licenses")
	for _, l := range registry.All() {
		mark := " "
		if allowed[string(l.ID)] {
			mark = "*"
		}
		printer.Plain("%s %3s  %s", mark, string(l.ID), l.Name)
	}
	printer.Plain("")
	printer.Plain("* searched by 'pick' (%d of %d)", len(allowed), registry.Len())

	if !licensesSync {
		return nil
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("--sync needs a database: set database.url or --database-url")
	}

	db, err := store.Connect(ctx, cfg.Database.URL, log)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.UpsertLicenses(ctx, registry.All())
	if err != nil {
		return err
	}
	printer.Success(fmt.Sprintf("Synced %d licenses", n))
	return nil
}
