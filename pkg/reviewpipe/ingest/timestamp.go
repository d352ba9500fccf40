package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/internalerr"
)

// isoLayouts are the ISO-8601 shapes accepted for review timestamps.
// Fractional seconds are accepted after any layout with seconds.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without an offset are
// taken as UTC. The result is always in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q is not ISO-8601", internalerr.ErrInvalidInput, s)
}
