package cef

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// builderStampLayout renders prefix timestamps as "Mon DD HH:MM:SS".
const builderStampLayout = "Jan 02 15:04:05"

// LineSpec describes a line for CreateLine.
type LineSpec struct {
	Version            int
	DeviceVendor       string
	DeviceProduct      string
	DeviceVersion      string
	DeviceEventClassID string
	Name               string
	Severity           int

	// SyslogPrefix adds a "Mon DD HH:MM:SS hostname" prefix. Hostname is
	// then required; a zero Timestamp means the parser clock's now.
	SyslogPrefix bool
	Timestamp    time.Time
	Hostname     string

	Extensions []Field
}

// CreateLine builds a line with the system clock.
func CreateLine(spec LineSpec) (Message, error) {
	return defaultParser.CreateLine(spec)
}

// CreateLine renders spec as CEF text and parses it back, so a built
// Message always satisfies the same rules as a parsed one.
func (p *Parser) CreateLine(spec LineSpec) (Message, error) {
	if spec.SyslogPrefix && spec.Hostname == "" {
		return Message{}, lineError(ErrIncompleteMessage, "", "syslog prefix requested without a hostname")
	}

	for _, f := range []Field{
		{Key: HeaderDeviceVendor, Value: spec.DeviceVendor},
		{Key: HeaderDeviceProduct, Value: spec.DeviceProduct},
		{Key: HeaderDeviceVersion, Value: spec.DeviceVersion},
		{Key: HeaderDeviceEventClassID, Value: spec.DeviceEventClassID},
		{Key: HeaderName, Value: spec.Name},
	} {
		// A trailing backslash would escape the following separator.
		if strings.HasSuffix(f.Value, `\`) {
			return Message{}, lineError(ErrUnsupportedValue, "", fmt.Sprintf("%s %q ends with a backslash", f.Key, f.Value))
		}
	}

	var b strings.Builder
	if spec.SyslogPrefix {
		ts := spec.Timestamp
		if ts.IsZero() {
			ts = p.clock.Now()
		}
		b.WriteString(ts.Format(builderStampLayout))
		b.WriteByte(' ')
		b.WriteString(spec.Hostname)
		b.WriteByte(' ')
	}

	fields := []string{
		"CEF:" + strconv.Itoa(spec.Version),
		escapeHeader(spec.DeviceVendor),
		escapeHeader(spec.DeviceProduct),
		escapeHeader(spec.DeviceVersion),
		escapeHeader(spec.DeviceEventClassID),
		escapeHeader(spec.Name),
		strconv.Itoa(spec.Severity),
	}
	b.WriteString(strings.Join(fields, "|"))
	b.WriteByte('|')

	var ext []string
	for _, f := range spec.Extensions {
		if f.Key == "" || strings.ContainsAny(f.Key, "= \t\\") {
			return Message{}, lineError(ErrUnsupportedValue, "", fmt.Sprintf("extension key %q", f.Key))
		}
		ext = append(ext, f.Key+"="+escapeExtension(f.Value))
	}
	b.WriteString(strings.Join(ext, " "))

	return p.ParseLine(b.String())
}
