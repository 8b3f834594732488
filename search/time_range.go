// Package search parses the time bounds accepted by log searches.
package search

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ceflog/cef"
)

var relativePattern = regexp.MustCompile(`^last\s+(\d+)\s*(s|m|h|d|w|sec|secs|second|seconds|min|mins|minute|minutes|hour|hours|day|days|week|weeks)$`)

// absoluteLayouts are tried in order for absolute expressions.
var absoluteLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// TimeRangeParser parses relative and absolute time expressions against a
// clock.
type TimeRangeParser struct {
	clock cef.Clock
}

// NewTimeRangeParser creates a parser resolving expressions against c.
func NewTimeRangeParser(c cef.Clock) *TimeRangeParser {
	if c == nil {
		c = cef.SystemClock
	}
	return &TimeRangeParser{clock: c}
}

// ParseRelativeTime parses expressions like "last 24h" or "last 7 days"
// into an instant that far before now.
func (trp *TimeRangeParser) ParseRelativeTime(expr string) (time.Time, error) {
	expr = strings.ToLower(strings.TrimSpace(expr))

	matches := relativePattern.FindStringSubmatch(expr)
	if len(matches) != 3 {
		return time.Time{}, fmt.Errorf("invalid relative time expression: %s (expected format: 'last 24h' or 'last 7d')", expr)
	}

	amount, err := strconv.Atoi(matches[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time amount: %s", matches[1])
	}

	var unit time.Duration
	switch matches[2] {
	case "s", "sec", "secs", "second", "seconds":
		unit = time.Second
	case "m", "min", "mins", "minute", "minutes":
		unit = time.Minute
	case "h", "hour", "hours":
		unit = time.Hour
	case "d", "day", "days":
		unit = 24 * time.Hour
	case "w", "week", "weeks":
		unit = 7 * 24 * time.Hour
	default:
		return time.Time{}, fmt.Errorf("unsupported time unit: %s", matches[2])
	}

	return trp.clock.Now().Add(-time.Duration(amount) * unit), nil
}

// ParseAbsoluteTime parses ISO8601 timestamps, and syslog stamps such as
// "Apr 15 22:11:20" whose year is inferred the same way as for CEF
// prefixes. Expressions without a zone use the clock's location.
func (trp *TimeRangeParser) ParseAbsoluteTime(expr string) (time.Time, error) {
	expr = strings.TrimSpace(expr)
	now := trp.clock.Now()

	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, expr, now.Location()); err == nil {
			return t, nil
		}
	}

	if t, err := cef.ResolveSyslogStamp(expr, now); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("invalid absolute time format: %s (expected ISO8601 or 'Mon DD HH:MM:SS')", expr)
}

// ParseTime parses "now", a relative expression or an absolute one.
func (trp *TimeRangeParser) ParseTime(expr string) (time.Time, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return time.Time{}, fmt.Errorf("time expression cannot be empty")
	}

	lower := strings.ToLower(expr)
	if lower == "now" {
		return trp.clock.Now(), nil
	}
	if strings.HasPrefix(lower, "last") {
		return trp.ParseRelativeTime(expr)
	}
	return trp.ParseAbsoluteTime(expr)
}

// SearchOptions converts optional start and end expressions into cef
// search options. Empty expressions leave the Log's own bounds in place.
func (trp *TimeRangeParser) SearchOptions(startExpr, endExpr string) ([]cef.SearchOption, error) {
	var opts []cef.SearchOption

	if startExpr != "" {
		start, err := trp.ParseTime(startExpr)
		if err != nil {
			return nil, fmt.Errorf("invalid start time expression: %w", err)
		}
		opts = append(opts, cef.WithStartTime(start))
	}

	if endExpr != "" {
		end, err := trp.ParseTime(endExpr)
		if err != nil {
			return nil, fmt.Errorf("invalid end time expression: %w", err)
		}
		opts = append(opts, cef.WithEndTime(end))
	}

	return opts, nil
}
