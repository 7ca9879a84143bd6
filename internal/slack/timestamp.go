package slack

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTimestamp parses a Slack timestamp to time.Time.
// Slack timestamps are Unix seconds with a microsecond fraction ("1234567890.123456").
func ParseTimestamp(ts string) (time.Time, error) {
	secPart, fracPart, _ := strings.Cut(ts, ".")

	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp: %s", ts)
	}

	if fracPart == "" {
		return time.Unix(sec, 0), nil
	}

	if len(fracPart) > 9 {
		fracPart = fracPart[:9]
	}

	nsec, err := strconv.ParseInt(fracPart+strings.Repeat("0", 9-len(fracPart)), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp: %s", ts)
	}

	return time.Unix(sec, nsec), nil
}

// FormatTimestamp formats a time.Time to Slack timestamp.
func FormatTimestamp(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/1000)
}

// CompareTimestamps orders two Slack timestamps. Unparseable values sort
// before parseable ones and compare lexically among themselves.
func CompareTimestamps(a, b string) int {
	ta, errA := ParseTimestamp(a)
	tb, errB := ParseTimestamp(b)

	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	default:
		return ta.Compare(tb)
	}
}
