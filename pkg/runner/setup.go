package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flickrpicker/pkg/collector"
	"flickrpicker/pkg/config"
	"flickrpicker/pkg/flickr"
	"flickrpicker/pkg/license"
	"flickrpicker/pkg/logger"
	"flickrpicker/pkg/metrics"
	"flickrpicker/pkg/picker"
	"flickrpicker/pkg/ratelimit"
	"flickrpicker/pkg/sampler"
	"flickrpicker/pkg/store"

	"github.com/google/uuid"
)

// ErrNoAllowedLicenses is returned when none of the target license names
// exist in the catalog
var ErrNoAllowedLicenses = errors.New("no target license found in catalog")

// Deps are optional collaborators for Open. Zero values select defaults.
type Deps struct {
	Logger   logger.Logger
	Metrics  *metrics.Metrics
	Wait     ratelimit.WaitPolicy
	Sampler  picker.WindowSampler
	Progress ProgressReporter
}

// Open wires a Runner from configuration: it loads the license catalog,
// connects the optional Redis and Postgres backends and then opens the
// output CSV.
func Open(ctx context.Context, cfg *config.Config, deps Deps) (*Runner, error) {
	log := deps.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	runID := uuid.NewString()
	log = log.WithField("run_id", runID)

	var clientOpts []flickr.Option
	if deps.Metrics != nil {
		clientOpts = append(clientOpts, flickr.WithObserver(deps.Metrics))
	}
	client := flickr.NewClient(cfg.Flickr, log, clientOpts...)

	registry, err := license.NewRegistry(ctx, client)
	if err != nil {
		return nil, err
	}
	allowed := registry.ResolveAllowedIDs(cfg.Flickr.TargetLicenses)
	if allowed == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoAllowedLicenses, strings.Join(cfg.Flickr.TargetLicenses, ", "))
	}
	log.InfoWithFields("license filter resolved", map[string]interface{}{
		"license_ids": allowed,
	})

	smp := deps.Sampler
	if smp == nil {
		smp = sampler.New(sampler.WithWidth(cfg.Flickr.WindowWidth))
	}
	wait := deps.Wait
	if wait == nil {
		wait = ratelimit.NewFixedWait(cfg.Flickr.WaitTime)
	}

	var closers []func() error
	cleanup := func() {
		for _, fn := range closers {
			fn()
		}
	}

	seen, err := openSeenSet(ctx, cfg.Dedup, runID, &closers)
	if err != nil {
		cleanup()
		return nil, err
	}

	var dbSink collector.RecordSink
	if cfg.Database.URL != "" {
		db, err := store.Connect(ctx, cfg.Database.URL, log)
		if err != nil {
			cleanup()
			return nil, err
		}
		closers = append(closers, func() error { db.Close(); return nil })
		dbSink = db.NewRecordSink(runID)
	}

	// The CSV is truncated last so a failed backend leaves the previous output alone.
	csvSink, err := collector.NewCSVSink(cfg.Pick.OutputCSV)
	if err != nil {
		cleanup()
		return nil, err
	}
	sinks := []collector.RecordSink{csvSink}
	if dbSink != nil {
		sinks = append(sinks, dbSink)
	}

	pk := picker.New(client, smp, wait, picker.Config{
		AllowedLicenses: allowed,
		SearchExtras:    cfg.Flickr.SearchExtras,
		RetryErrorNum:   cfg.Flickr.RetryErrorNum,
	}, picker.WithLogger(log), picker.WithMetrics(deps.Metrics),
		picker.WithTransitionHook(func(from, to picker.State) {
			log.DebugWithFields("pick state", map[string]interface{}{
				"from": from.String(),
				"to":   to.String(),
			})
		}))

	coll := collector.New(seen, registry, sinks,
		collector.WithLogger(log), collector.WithMetrics(deps.Metrics))

	opts := []Option{WithLogger(log)}
	if deps.Progress != nil {
		opts = append(opts, WithProgress(deps.Progress))
	}
	for _, fn := range closers {
		opts = append(opts, WithCloser(fn))
	}
	return New(runID, cfg.Pick.GetNum, pk, coll, opts...), nil
}

func openSeenSet(ctx context.Context, cfg config.DedupConfig, runID string, closers *[]func() error) (collector.SeenSet, error) {
	if !strings.EqualFold(cfg.Backend, "redis") {
		return collector.NewMemorySeenSet(), nil
	}
	client, err := collector.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, client.Close)
	return collector.NewRedisSeenSet(client, runID, cfg.TTL), nil
}
