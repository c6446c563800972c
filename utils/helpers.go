package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const dateOnly = "2006-01-02"

var callbackPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$.]*$`)

// ValidCallback reports whether name is safe to echo as a JSONP function name.
func ValidCallback(name string) bool {
	return len(name) <= 128 && callbackPattern.MatchString(name)
}

// ParseDateParam accepts RFC3339 timestamps or YYYY-MM-DD dates. A bare date used as the end of a
// range covers that whole UTC day. An empty value yields nil.
func ParseDateParam(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(dateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: use RFC3339 or YYYY-MM-DD", raw)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}
