package cef

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Header keys, in canonical order.
const (
	HeaderPrefix             = "Prefix"
	HeaderVersion            = "Version"
	HeaderDeviceVendor       = "DeviceVendor"
	HeaderDeviceProduct      = "DeviceProduct"
	HeaderDeviceVersion      = "DeviceVersion"
	HeaderDeviceEventClassID = "DeviceEventClassID"
	HeaderName               = "Name"
	HeaderSeverity           = "Severity"
)

// syslogStampLayout is the RFC3164 timestamp without a year.
const syslogStampLayout = "Jan 2 15:04:05"

// firstFieldPattern splits the first header field into an optional syslog
// prefix (timestamp and hostname) and the CEF version.
var firstFieldPattern = mustCompile(`^\s*(?:(?<prefix>(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{1,2}\s+\d{2}:\d{2}:\d{2}\s+\S+)\s+)?CEF:(?<version>.*)$`)

// header holds the coerced header fields of a Message.
type header struct {
	prefix             string
	hasPrefix          bool
	version            int
	deviceVendor       string
	deviceProduct      string
	deviceVersion      string
	deviceEventClassID string
	name               string
	severity           int
}

// coerceHeader maps raw header fields onto typed values. Only Version and
// Severity are integers; every other field is kept as text.
func coerceHeader(line string, fields []string) (header, error) {
	if len(fields) < headerFieldCount {
		return header{}, lineError(ErrIncompleteHeader, line,
			fmt.Sprintf("found %d of %d fields", len(fields), headerFieldCount))
	}

	var h header
	m, err := firstFieldPattern.FindStringMatch(fields[0])
	if err != nil {
		return header{}, lineError(ErrCEFLine, line, err.Error())
	}
	if m == nil {
		return header{}, lineError(ErrCEFLine, line, "unexpected text before CEF marker")
	}
	if p := m.GroupByName("prefix"); p != nil && len(p.Captures) > 0 {
		h.prefix = p.String()
		h.hasPrefix = true
		if _, err := parseSyslogStamp(h.prefix, time.UTC); err != nil {
			return header{}, lineError(ErrUnsupportedValue, line, fmt.Sprintf("syslog timestamp in %q", h.prefix))
		}
	}

	if h.version, err = coerceInt(HeaderVersion, m.GroupByName("version").String()); err != nil {
		return header{}, lineError(ErrUnsupportedValue, line, err.Error())
	}
	h.deviceVendor = unescapeHeader(fields[1])
	h.deviceProduct = unescapeHeader(fields[2])
	h.deviceVersion = unescapeHeader(fields[3])
	h.deviceEventClassID = unescapeHeader(fields[4])
	h.name = unescapeHeader(fields[5])
	if h.severity, err = coerceInt(HeaderSeverity, fields[6]); err != nil {
		return header{}, lineError(ErrUnsupportedValue, line, err.Error())
	}
	return h, nil
}

func coerceInt(key, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s %q is not an integer", key, raw)
	}
	return n, nil
}

// parseSyslogStamp parses the "Mon DD HH:MM:SS" part of a prefix, ignoring
// the trailing hostname. The result has year 0.
func parseSyslogStamp(prefix string, loc *time.Location) (time.Time, error) {
	parts := strings.Fields(prefix)
	if len(parts) < 3 {
		return time.Time{}, fmt.Errorf("syslog prefix %q has no timestamp", prefix)
	}
	return time.ParseInLocation(syslogStampLayout, strings.Join(parts[:3], " "), loc)
}

// inferYear places a year-less stamp in the latest year, no later than
// now's, where the date exists and is not after now. Feb 29 therefore
// resolves to the most recent leap year.
func inferYear(stamp, now time.Time) time.Time {
	for year := now.Year(); ; year-- {
		t := time.Date(year, stamp.Month(), stamp.Day(),
			stamp.Hour(), stamp.Minute(), stamp.Second(), 0, now.Location())
		if t.Month() == stamp.Month() && !t.After(now) {
			return t
		}
	}
}

// ResolveSyslogStamp parses a year-less "Mon DD HH:MM:SS" stamp in now's
// location and infers its year the same way Message.TimestampAt does.
func ResolveSyslogStamp(stamp string, now time.Time) (time.Time, error) {
	t, err := time.ParseInLocation(syslogStampLayout, strings.Join(strings.Fields(stamp), " "), now.Location())
	if err != nil {
		return time.Time{}, err
	}
	return inferYear(t, now), nil
}
