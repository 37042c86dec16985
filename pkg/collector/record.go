package collector

import (
	"strconv"

	"flickrpicker/pkg/flickr"
)

// Header is the CSV column order
var Header = []string{
	"id",
	"license",
	"owner",
	"url",
	"source",
	"rotation",
	"width",
	"height",
	"dateuploaded",
	"datetaken",
	"takeunknown",
}

// LicenseNamer maps a license id to its display name. *license.Registry
// satisfies it.
type LicenseNamer interface {
	Name(id string) string
}

// Record is one persisted photo
type Record struct {
	ID           string
	License      string
	Owner        string
	URL          string
	Source       string
	Rotation     string
	Width        int
	Height       int
	DateUploaded string
	DateTaken    string
	TakenUnknown string
}

// NewRecord flattens a picked photo. A license id missing from licenses is
// kept as is.
func NewRecord(photo *flickr.PhotoInfo, size flickr.Size, licenses LicenseNamer) Record {
	lic := photo.License.String()
	if licenses != nil {
		lic = licenses.Name(lic)
	}
	return Record{
		ID:           photo.ID.String(),
		License:      lic,
		Owner:        photo.Owner.Username,
		URL:          photo.PageURL(),
		Source:       size.Source,
		Rotation:     photo.Rotation.String(),
		Width:        size.Width.Int(),
		Height:       size.Height.Int(),
		DateUploaded: flickr.FormatUploaded(photo.DateUploaded.String()),
		DateTaken:    photo.Dates.Taken,
		TakenUnknown: photo.Dates.TakenUnknown.String(),
	}
}

// Row renders the record in Header order
func (r Record) Row() []string {
	return []string{
		r.ID,
		r.License,
		r.Owner,
		r.URL,
		r.Source,
		r.Rotation,
		strconv.Itoa(r.Width),
		strconv.Itoa(r.Height),
		r.DateUploaded,
		r.DateTaken,
		r.TakenUnknown,
	}
}
