package parse

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var tzSuffixRe = regexp.MustCompile(`Z$|[+\-]\d{2}:\d{2}$`)

// StartedAt parses a reservation start timestamp. The backend emits naive UTC
// timestamps, so a value without an explicit offset is read as UTC.
func StartedAt(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if !tzSuffixRe.MatchString(s) {
		s += "Z"
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", raw, err)
	}
	return t, nil
}
