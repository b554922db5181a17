package recipe

import (
	"strings"
	"time"
)

// timestampLayouts are tried in order by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseTimestamp parses a stored timestamp.
//
// Fallback policy: an empty or unparsable value yields now and ok=false.
// Callers count the fallbacks so a store full of bad dates is visible
// instead of quietly rewritten to the current time.
func ParseTimestamp(raw string, now time.Time) (t time.Time, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now, false
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), true
		}
	}

	return now, false
}

// FormatTimestamp renders t in the persisted form.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
