package sqlite

import (
	"fmt"
	"time"
)

// parseDate accepts both plain dates and the RFC 3339 timestamps some
// importers write into the date column.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
