package dedup

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrInvalidTimestamp is returned when a message timestamp cannot be parsed.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// ParseTimestamp parses a server timestamp. ISO-8601 is expected; other
// common layouts are accepted and zone-less values are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidTimestamp)
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidTimestamp, s, err)
	}
	return t, nil
}

// ParseMillis parses a server timestamp to epoch milliseconds.
func ParseMillis(s string) (int64, error) {
	t, err := ParseTimestamp(s)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}
