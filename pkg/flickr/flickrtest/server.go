// Package flickrtest provides an in-process fake of the Flickr REST API for
// tests.
package flickrtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Photo is a fake photo served by getInfo and getSizes
type Photo struct {
	ID       string
	License  string
	Owner    string
	Uploaded int64
	Taken    string
	Width    int
	Height   int
}

// DefaultLicenses mirrors the real catalog closely enough for tests
var DefaultLicenses = []map[string]interface{}{
	{"id": 0, "name": "All Rights Reserved", "url": ""},
	{"id": 4, "name": "Attribution License", "url": "https://creativecommons.org/licenses/by/2.0/"},
	{"id": 7, "name": "No known copyright restrictions", "url": "https://www.flickr.com/commons/usage/"},
	{"id": 8, "name": "United States Government Work", "url": "http://www.usa.gov/copyright.shtml"},
	{"id": 9, "name": "Public Domain Dedication (CC0)", "url": "https://creativecommons.org/publicdomain/zero/1.0/"},
	{"id": 10, "name": "Public Domain Mark", "url": "https://creativecommons.org/publicdomain/mark/1.0/"},
}

// Server is a fake Flickr endpoint. Configure it before the first request.
type Server struct {
	*httptest.Server

	// Search returns the photo ids for one search call. Nil means no hits.
	Search func(params url.Values) []string
	// LicensesFail makes licenses.getInfo return stat=fail
	LicensesFail bool
	// FailInfo lists photo ids whose getInfo fails
	FailInfo map[string]bool
	// IgnoreLicense makes search return hits regardless of the license param
	IgnoreLicense bool

	mu       sync.Mutex
	photos   map[string]Photo
	calls    map[string]int
	searches []url.Values
}

// NewServer starts a fake that is closed when t ends
func NewServer(t testing.TB) *Server {
	s := &Server{
		photos:   make(map[string]Photo),
		calls:    make(map[string]int),
		FailInfo: make(map[string]bool),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Server.Close)
	return s
}

// AddPhoto registers photos served by getInfo and getSizes
func (s *Server) AddPhoto(photos ...Photo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range photos {
		s.photos[p.ID] = p
	}
}

// Calls returns how often method was called
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// Searches returns the query of every search call
func (s *Server) Searches() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]url.Values, len(s.searches))
	copy(out, s.searches)
	return out
}

// SourceURL is the image URL reported for a photo's largest size
func (s *Server) SourceURL(id string) string {
	return s.URL + "/img/" + id + "_o.jpg"
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	method := q.Get("method")

	s.mu.Lock()
	s.calls[method]++
	if method == "flickr.photos.search" {
		s.searches = append(s.searches, q)
	}
	s.mu.Unlock()

	if q.Get("api_key") == "" {
		fail(w, 100, "Invalid API Key (Key not found)")
		return
	}

	switch method {
	case "flickr.photos.licenses.getInfo":
		if s.LicensesFail {
			fail(w, 105, "Service currently unavailable")
			return
		}
		ok(w, map[string]interface{}{"licenses": map[string]interface{}{"license": DefaultLicenses}})

	case "flickr.photos.search":
		var ids []string
		if s.Search != nil {
			ids = s.Search(q)
		}
		if !s.IgnoreLicense {
			ids = s.filterLicense(ids, q.Get("license"))
		}
		hits := make([]map[string]interface{}, 0, len(ids))
		for _, id := range ids {
			hits = append(hits, map[string]interface{}{"id": id, "owner": "1@N00", "secret": "s", "server": "65535", "ispublic": 1})
		}
		ok(w, map[string]interface{}{"photos": map[string]interface{}{
			"page": 1, "pages": 1, "perpage": 100, "total": strconv.Itoa(len(hits)), "photo": hits,
		}})

	case "flickr.photos.getInfo":
		p, found := s.photo(q.Get("photo_id"))
		if !found || s.FailInfo[p.ID] {
			fail(w, 1, "Photo not found")
			return
		}
		ok(w, map[string]interface{}{"photo": map[string]interface{}{
			"id":           p.ID,
			"license":      p.License,
			"rotation":     0,
			"dateuploaded": strconv.FormatInt(p.Uploaded, 10),
			"owner":        map[string]interface{}{"nsid": "1@N00", "username": p.Owner},
			"dates":        map[string]interface{}{"taken": p.Taken, "takenunknown": "0"},
			"urls": map[string]interface{}{"url": []map[string]interface{}{
				{"type": "photopage", "_content": "https://www.flickr.com/photos/" + p.Owner + "/" + p.ID + "/"},
			}},
		}})

	case "flickr.photos.getSizes":
		p, found := s.photo(q.Get("photo_id"))
		if !found {
			fail(w, 1, "Photo not found")
			return
		}
		ok(w, map[string]interface{}{"sizes": map[string]interface{}{"size": []map[string]interface{}{
			{"label": "Medium", "width": 500, "height": 375, "source": s.URL + "/img/" + p.ID + "_m.jpg", "media": "photo"},
			{"label": "Original", "width": strconv.Itoa(p.Width), "height": strconv.Itoa(p.Height), "source": s.SourceURL(p.ID), "media": "photo"},
		}}})

	default:
		fail(w, 112, "Method \""+method+"\" not found")
	}
}

// filterLicense drops registered photos whose license is not in the
// comma-separated list. Unregistered ids pass through unchanged.
func (s *Server) filterLicense(ids []string, licenses string) []string {
	if licenses == "" {
		return ids
	}
	allowed := make(map[string]bool)
	for _, id := range strings.Split(licenses, ",") {
		allowed[strings.TrimSpace(id)] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := ids[:0:0]
	for _, id := range ids {
		if p, found := s.photos[id]; found && !allowed[p.License] {
			continue
		}
		out = append(out, id)
	}
	return out
}

func (s *Server) photo(id string) (Photo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.photos[id]
	return p, found
}

func ok(w http.ResponseWriter, body map[string]interface{}) {
	body["stat"] = "ok"
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func fail(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"stat": "fail", "code": code, "message": msg})
}
