package flickr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexString decodes a JSON string or number into a string
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("flex string: unexpected value %s", data)
	}
	*s = FlexString(num.String())
	return nil
}

func (s FlexString) String() string { return string(s) }

// FlexInt decodes a JSON number or numeric string into an int
type FlexInt int

func (i *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*i = 0
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if raw == "" {
			*i = 0
			return nil
		}
	}
	// widths occasionally come back as "2048.0"
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("flex int: %w", err)
	}
	*i = FlexInt(int(f))
	return nil
}

// Int returns the value as a plain int
func (i FlexInt) Int() int { return int(i) }

// envelope is the part every response shares
type envelope struct {
	Stat    string  `json:"stat"`
	Code    FlexInt `json:"code"`
	Message string  `json:"message"`
}

// License is one entry of the license catalog
type License struct {
	ID   FlexString `json:"id"`
	Name string     `json:"name"`
	URL  string     `json:"url"`
}

type licensesResponse struct {
	Licenses struct {
		License []License `json:"license"`
	} `json:"licenses"`
}

// Candidate is a search hit. It only carries enough to fetch details.
type Candidate struct {
	ID       FlexString `json:"id"`
	Owner    string     `json:"owner"`
	Secret   string     `json:"secret"`
	Server   FlexString `json:"server"`
	Title    string     `json:"title"`
	License  FlexString `json:"license"`
	IsPublic FlexInt    `json:"ispublic"`
}

type searchResponse struct {
	Photos struct {
		Page    FlexInt     `json:"page"`
		Pages   FlexInt     `json:"pages"`
		PerPage FlexInt     `json:"perpage"`
		Total   FlexInt     `json:"total"`
		Photo   []Candidate `json:"photo"`
	} `json:"photos"`
}

// Owner of a photo as reported by getInfo
type Owner struct {
	NSID     string `json:"nsid"`
	Username string `json:"username"`
	RealName string `json:"realname"`
}

// Dates block of getInfo
type Dates struct {
	Posted           FlexString `json:"posted"`
	Taken            string     `json:"taken"`
	TakenGranularity FlexString `json:"takengranularity"`
	TakenUnknown     FlexString `json:"takenunknown"`
	LastUpdate       FlexString `json:"lastupdate"`
}

// PhotoURL is one entry of urls.url
type PhotoURL struct {
	Type    string `json:"type"`
	Content string `json:"_content"`
}

// PhotoInfo is the subset of flickr.photos.getInfo that gets recorded
type PhotoInfo struct {
	ID           FlexString `json:"id"`
	Secret       string     `json:"secret"`
	Server       FlexString `json:"server"`
	License      FlexString `json:"license"`
	Rotation     FlexString `json:"rotation"`
	DateUploaded FlexString `json:"dateuploaded"`
	Owner        Owner      `json:"owner"`
	Dates        Dates      `json:"dates"`
	URLs         struct {
		URL []PhotoURL `json:"url"`
	} `json:"urls"`
}

// PageURL returns the first entry of urls.url, normally the photo page
func (p *PhotoInfo) PageURL() string {
	if len(p.URLs.URL) == 0 {
		return ""
	}
	return p.URLs.URL[0].Content
}

type infoResponse struct {
	Photo PhotoInfo `json:"photo"`
}

// Size is one rendition from flickr.photos.getSizes
type Size struct {
	Label  string  `json:"label"`
	Width  FlexInt `json:"width"`
	Height FlexInt `json:"height"`
	Source string  `json:"source"`
	URL    string  `json:"url"`
	Media  string  `json:"media"`
}

type sizesResponse struct {
	Sizes struct {
		Size []Size `json:"size"`
	} `json:"sizes"`
}

// LargestSize returns the widest size. On equal widths the earlier entry
// wins. ok is false for an empty list.
func LargestSize(sizes []Size) (Size, bool) {
	if len(sizes) == 0 {
		return Size{}, false
	}
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width > best.Width {
			best = s
		}
	}
	return best, true
}
