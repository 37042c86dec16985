// Package license resolves Flickr license names to the ids the search API
// filters on, and ids back to names for recording.
package license

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"flickrpicker/pkg/flickr"
)

// ErrCatalogUnavailable wraps any failure to load the catalog
var ErrCatalogUnavailable = errors.New("license catalog unavailable")

// License is one catalog entry
type License = flickr.License

// CatalogSource fetches the license catalog. *flickr.Client satisfies it.
type CatalogSource interface {
	GetLicenses(ctx context.Context) ([]flickr.License, error)
}

// Registry is an immutable id -> License map
type Registry struct {
	byID  map[string]License
	order []string
}

// NewRegistry loads the catalog from source
func NewRegistry(ctx context.Context, source CatalogSource) (*Registry, error) {
	licenses, err := source.GetLicenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	if len(licenses) == 0 {
		return nil, fmt.Errorf("%w: empty catalog", ErrCatalogUnavailable)
	}
	return NewRegistryFromLicenses(licenses), nil
}

// NewRegistryFromLicenses builds a registry from a known list. Later entries
// replace earlier ones with the same id.
func NewRegistryFromLicenses(licenses []License) *Registry {
	r := &Registry{byID: make(map[string]License, len(licenses))}
	for _, l := range licenses {
		id := l.ID.String()
		if _, seen := r.byID[id]; !seen {
			r.order = append(r.order, id)
		}
		r.byID[id] = l
	}
	sort.Slice(r.order, func(i, j int) bool { return idLess(r.order[i], r.order[j]) })
	return r
}

// ResolveAllowedIDs returns the comma-joined ids of the licenses whose name
// is in names, in ascending id order. Names not in the catalog are ignored;
// an empty result means no license matched.
func (r *Registry) ResolveAllowedIDs(names []string) string {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	var ids []string
	for _, id := range r.order {
		if _, ok := wanted[r.byID[id].Name]; ok {
			ids = append(ids, id)
		}
	}
	return strings.Join(ids, ",")
}

// Lookup returns the license with the given id
func (r *Registry) Lookup(id string) (License, bool) {
	l, ok := r.byID[id]
	return l, ok
}

// Name returns the license name for id, or id itself when unknown
func (r *Registry) Name(id string) string {
	if l, ok := r.byID[id]; ok {
		return l.Name
	}
	return id
}

// All returns every license sorted by id
func (r *Registry) All() []License {
	out := make([]License, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Len returns the catalog size
func (r *Registry) Len() int {
	return len(r.byID)
}

// idLess orders numeric ids numerically and anything else after them
func idLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
