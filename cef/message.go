package cef

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"
)

// Message is a parsed CEF line. It is immutable: the zero value is not a
// valid Message, and new Messages come only from ParseLine, CreateLine and
// Replace.
type Message struct {
	rawLine    string
	rawHeader  string
	header     header
	extensions Fields
	clock      Clock
}

// String returns the line text the Message was parsed from.
func (m Message) String() string {
	return m.rawLine
}

// GoString returns a short debugging form showing the raw header.
func (m Message) GoString() string {
	return fmt.Sprintf("CEFLine[%s]", m.rawHeader)
}

// RawLine returns the full line text.
func (m Message) RawLine() string { return m.rawLine }

// RawHeader returns the header span of the line, including any prefix.
func (m Message) RawHeader() string { return m.rawHeader }

// Prefix returns the syslog prefix (timestamp and hostname), if present.
func (m Message) Prefix() (string, bool) {
	return m.header.prefix, m.header.hasPrefix
}

// HasSyslogPrefix reports whether the line carried a syslog prefix.
func (m Message) HasSyslogPrefix() bool { return m.header.hasPrefix }

// Version returns the CEF format version.
func (m Message) Version() int { return m.header.version }

// DeviceVendor returns the device vendor header field.
func (m Message) DeviceVendor() string { return m.header.deviceVendor }

// DeviceProduct returns the device product header field.
func (m Message) DeviceProduct() string { return m.header.deviceProduct }

// DeviceVersion returns the device version header field.
func (m Message) DeviceVersion() string { return m.header.deviceVersion }

// DeviceEventClassID returns the signature ID. It is text even when it
// looks numeric.
func (m Message) DeviceEventClassID() string { return m.header.deviceEventClassID }

// Name returns the event name header field.
func (m Message) Name() string { return m.header.name }

// Severity returns the event severity.
func (m Message) Severity() int { return m.header.severity }

// Headers returns the header fields in canonical order, with integers in
// decimal form. Prefix is present only when the line had one.
func (m Message) Headers() Fields {
	h := m.header
	var f Fields
	if h.hasPrefix {
		f.set(HeaderPrefix, h.prefix)
	}
	f.set(HeaderVersion, strconv.Itoa(h.version))
	f.set(HeaderDeviceVendor, h.deviceVendor)
	f.set(HeaderDeviceProduct, h.deviceProduct)
	f.set(HeaderDeviceVersion, h.deviceVersion)
	f.set(HeaderDeviceEventClassID, h.deviceEventClassID)
	f.set(HeaderName, h.name)
	f.set(HeaderSeverity, strconv.Itoa(h.severity))
	return f
}

// Extensions returns the extension pairs. ok is false when the line had
// none.
func (m Message) Extensions() (ext Fields, ok bool) {
	if m.extensions.Len() == 0 {
		return Fields{}, false
	}
	return m.extensions.clone(), true
}

// Extension returns a single extension value.
func (m Message) Extension(key string) (string, bool) {
	return m.extensions.Get(key)
}

// HasExtensions reports whether the line had at least one extension.
func (m Message) HasExtensions() bool { return m.extensions.Len() > 0 }

// ExtensionCount returns the number of extension pairs.
func (m Message) ExtensionCount() int { return m.extensions.Len() }

// Timestamp resolves the syslog prefix timestamp against the Message's
// clock. It is recomputed on every call.
func (m Message) Timestamp() (time.Time, bool) {
	c := m.clock
	if c == nil {
		c = SystemClock
	}
	return m.TimestampAt(c.Now())
}

// TimestampAt resolves the syslog prefix timestamp as if the current
// instant were now. The year is now's year, or the previous one when the
// result would be after now. ok is false without a parseable prefix.
func (m Message) TimestampAt(now time.Time) (time.Time, bool) {
	if !m.header.hasPrefix {
		return time.Time{}, false
	}
	stamp, err := parseSyslogStamp(m.header.prefix, now.Location())
	if err != nil {
		return time.Time{}, false
	}
	return inferYear(stamp, now), true
}

// Overrides selects the fields Replace changes. Nil fields are left alone.
//
// Extensions is merged over the existing pairs; a non-nil empty map clears
// them instead. New keys are appended in sorted order.
type Overrides struct {
	Prefix             *string
	Version            *int
	DeviceVendor       *string
	DeviceProduct      *string
	DeviceVersion      *string
	DeviceEventClassID *string
	Name               *string
	Severity           *int
	Extensions         map[string]string
}

// Ptr returns a pointer to v, for filling Overrides.
func Ptr[T any](v T) *T {
	return &v
}

// Replace returns a copy of m with o applied. The raw line and raw header
// are carried over unchanged, so String reports the original text.
func (m Message) Replace(o Overrides) Message {
	out := m
	out.extensions = m.extensions.clone()

	h := &out.header
	if o.Prefix != nil {
		h.prefix, h.hasPrefix = *o.Prefix, true
	}
	if o.Version != nil {
		h.version = *o.Version
	}
	if o.DeviceVendor != nil {
		h.deviceVendor = *o.DeviceVendor
	}
	if o.DeviceProduct != nil {
		h.deviceProduct = *o.DeviceProduct
	}
	if o.DeviceVersion != nil {
		h.deviceVersion = *o.DeviceVersion
	}
	if o.DeviceEventClassID != nil {
		h.deviceEventClassID = *o.DeviceEventClassID
	}
	if o.Name != nil {
		h.name = *o.Name
	}
	if o.Severity != nil {
		h.severity = *o.Severity
	}

	switch {
	case o.Extensions == nil:
	case len(o.Extensions) == 0:
		out.extensions = Fields{}
	default:
		for _, k := range slices.Sorted(maps.Keys(o.Extensions)) {
			out.extensions.set(k, o.Extensions[k])
		}
	}
	return out
}
