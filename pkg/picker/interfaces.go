package picker

import (
	"context"

	"flickrpicker/pkg/flickr"
	"flickrpicker/pkg/sampler"
)

// PhotoSource defines the Flickr calls the picker makes. *flickr.Client
// satisfies it.
type PhotoSource interface {
	Search(ctx context.Context, params map[string]string) ([]flickr.Candidate, error)
	GetInfo(ctx context.Context, photoID string) (*flickr.PhotoInfo, error)
	GetSizes(ctx context.Context, photoID string) ([]flickr.Size, error)
}

// WindowSampler yields upload windows to search in
type WindowSampler interface {
	Sample() sampler.Window
}
