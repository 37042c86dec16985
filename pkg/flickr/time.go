package flickr

import (
	"strconv"
	"time"
)

// DateLayout is the layout Flickr uses for taken dates and the one used when
// rendering upload times
const DateLayout = "2006-01-02 15:04:05"

type ParseTimeError struct {
	s string
}

func (e *ParseTimeError) Error() string {
	return "invalid time: " + e.s
}

// ParseTime accepts either a DateLayout string in local time or unix seconds
func ParseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err == nil {
		return t, nil
	}

	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, &ParseTimeError{s}
	}
	return time.Unix(secs, 0), nil
}

// FormatUploaded renders an upload stamp in local time. Values ParseTime
// rejects are returned unchanged.
func FormatUploaded(uploaded string) string {
	t, err := ParseTime(uploaded)
	if err != nil {
		return uploaded
	}
	return t.In(time.Local).Format(DateLayout)
}
