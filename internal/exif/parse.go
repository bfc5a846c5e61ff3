package exif

import (
	"regexp"
	"strings"
	"time"
)

// timestampFields are tried in order until one parses.
var timestampFields = []string{
	"DateTimeOriginal",
	"CreateDate",
	"MediaCreateDate",
	"CreationDate",
	"TrackCreateDate",
	"ModifyDate",
}

var compactOffset = regexp.MustCompile(`([+-])(\d{2})(\d{2})$`)

var parseLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
}

// ParseTimestamp interprets the datetime strings exiftool and camera
// firmware emit. Colon-separated dates, trailing Z, and compact UTC offsets
// are normalized first. Zoned values are converted to local time.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	// EXIF writes dates as 2017:02:05; rewrite to 2017-02-05.
	if len(value) >= 10 && value[4] == ':' && value[7] == ':' {
		value = strings.ReplaceAll(value[:10], ":", "-") + value[10:]
	}
	if strings.HasSuffix(value, "Z") {
		value = strings.TrimSuffix(value, "Z") + "+00:00"
	}
	value = compactOffset.ReplaceAllString(value, "$1$2:$3")

	for _, layout := range parseLayouts {
		ts, err := time.ParseInLocation(layout, value, time.Local)
		if err != nil {
			continue
		}
		return ts.In(time.Local), true
	}
	return time.Time{}, false
}
