// Package export writes CEF messages in machine-readable encodings.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"ceflog/cef"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Format names an output encoding.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

// Formats lists every supported Format.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatMsgpack}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Record is the structured form of a Message.
type Record struct {
	Prefix             string            `json:"prefix,omitempty" yaml:"prefix,omitempty" msgpack:"prefix,omitempty"`
	Timestamp          *time.Time        `json:"timestamp,omitempty" yaml:"timestamp,omitempty" msgpack:"timestamp,omitempty"`
	Version            int               `json:"version" yaml:"version" msgpack:"version"`
	DeviceVendor       string            `json:"device_vendor" yaml:"device_vendor" msgpack:"device_vendor"`
	DeviceProduct      string            `json:"device_product" yaml:"device_product" msgpack:"device_product"`
	DeviceVersion      string            `json:"device_version" yaml:"device_version" msgpack:"device_version"`
	DeviceEventClassID string            `json:"device_event_class_id" yaml:"device_event_class_id" msgpack:"device_event_class_id"`
	Name               string            `json:"name" yaml:"name" msgpack:"name"`
	Severity           int               `json:"severity" yaml:"severity" msgpack:"severity"`
	Extensions         map[string]string `json:"extensions,omitempty" yaml:"extensions,omitempty" msgpack:"extensions,omitempty"`
	Raw                string            `json:"raw" yaml:"raw" msgpack:"raw"`
}

// NewRecord converts m, resolving its timestamp as of now.
func NewRecord(m cef.Message, now time.Time) Record {
	r := Record{
		Version:            m.Version(),
		DeviceVendor:       m.DeviceVendor(),
		DeviceProduct:      m.DeviceProduct(),
		DeviceVersion:      m.DeviceVersion(),
		DeviceEventClassID: m.DeviceEventClassID(),
		Name:               m.Name(),
		Severity:           m.Severity(),
		Raw:                m.RawLine(),
	}
	if prefix, ok := m.Prefix(); ok {
		r.Prefix = prefix
	}
	if ts, ok := m.TimestampAt(now); ok {
		r.Timestamp = &ts
	}
	if ext, ok := m.Extensions(); ok {
		r.Extensions = ext.Map()
	}
	return r
}

// Encoder writes a stream of Messages in one Format: raw lines for text,
// NDJSON for json, a multi-document stream for yaml and consecutive
// values for msgpack.
type Encoder struct {
	format  Format
	w       io.Writer
	clock   cef.Clock
	json    *json.Encoder
	yaml    *yaml.Encoder
	msgpack *msgpack.Encoder
}

// NewEncoder creates an Encoder writing format to w. Timestamps are
// resolved against clock.
func NewEncoder(w io.Writer, format Format, clock cef.Clock) (*Encoder, error) {
	if clock == nil {
		clock = cef.SystemClock
	}
	e := &Encoder{format: format, w: w, clock: clock}

	switch format {
	case FormatText:
	case FormatJSON:
		e.json = json.NewEncoder(w)
		e.json.SetEscapeHTML(false)
	case FormatYAML:
		e.yaml = yaml.NewEncoder(w)
		e.yaml.SetIndent(2)
	case FormatMsgpack:
		e.msgpack = msgpack.NewEncoder(w)
		e.msgpack.SetSortMapKeys(true)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return e, nil
}

// Encode writes one Message.
func (e *Encoder) Encode(m cef.Message) error {
	if e.format == FormatText {
		_, err := fmt.Fprintln(e.w, m.RawLine())
		return err
	}
	return e.EncodeValue(NewRecord(m, e.clock.Now()))
}

// EncodeValue writes an arbitrary value in the Encoder's structured
// format. Text encoders print it with %v.
func (e *Encoder) EncodeValue(v any) error {
	var err error
	switch e.format {
	case FormatJSON:
		err = e.json.Encode(v)
	case FormatYAML:
		err = e.yaml.Encode(v)
	case FormatMsgpack:
		err = e.msgpack.Encode(v)
	default:
		_, err = fmt.Fprintln(e.w, v)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", e.format, err)
	}
	return nil
}

// EncodeLog writes every Message of l in Log order.
func (e *Encoder) EncodeLog(l *cef.Log) error {
	for _, m := range l.All() {
		if err := e.Encode(m); err != nil {
			return err
		}
	}
	return nil
}

// EncodeMessages writes msgs in order.
func (e *Encoder) EncodeMessages(msgs []cef.Message) error {
	for _, m := range msgs {
		if err := e.Encode(m); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes buffered output.
func (e *Encoder) Close() error {
	if e.yaml != nil {
		return e.yaml.Close()
	}
	return nil
}
