package runner

import (
	"context"

	"flickrpicker/pkg/collector"
	"flickrpicker/pkg/flickr"
	"flickrpicker/pkg/picker"
)

// PhotoPicker yields one photo per call
type PhotoPicker interface {
	Pick(ctx context.Context) (*picker.Result, error)
}

// StatsReporter is implemented by pickers that count failures per Pick
type StatsReporter interface {
	LastStats() picker.Stats
}

// PhotoCollector deduplicates and persists picked photos
type PhotoCollector interface {
	Offer(ctx context.Context, photo *flickr.PhotoInfo, size flickr.Size) (collector.Outcome, error)
	Close() error
}

// ProgressReporter is told about every finished iteration
type ProgressReporter interface {
	Advance(status string)
}
