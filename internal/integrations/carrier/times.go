package carrier

import (
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	// Track24-подобный формат
	"02.01.2006 15:04:05",
	"02 Jan 2006 15:04",
	"02 Jan 2006, 15:04",
	"Jan 2, 2006 15:04",
	"2006-01-02",
}

// ParseTime tries the date formats carriers are known to use. Returns nil when nothing fits.
func ParseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}
