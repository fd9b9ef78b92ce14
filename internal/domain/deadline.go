package domain

import (
	"fmt"
	"strings"
	"time"
)

// LocalLayout is the owner-facing deadline format.
const LocalLayout = "02.01.2006 15:04"

// naive layouts carry no zone and are read in the caller's display zone.
var naiveLayouts = []string{
	LocalLayout,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseDeadline accepts RFC 3339 or one of the naive layouts and returns
// the instant in UTC.
func ParseDeadline(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDeadline, raw)
}

// FormatLocal renders t in loc using LocalLayout.
func FormatLocal(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(LocalLayout)
}
