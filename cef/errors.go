package cef

import (
	"errors"
	"fmt"
)

var (
	// ErrCEFLine reports a line without a recognisable CEF header.
	ErrCEFLine = errors.New("invalid CEF line")

	// ErrIncompleteHeader reports a header with fewer than seven fields.
	// It wraps ErrCEFLine.
	ErrIncompleteHeader = fmt.Errorf("%w: incomplete header", ErrCEFLine)

	// ErrUnsupportedValue reports a header value that cannot be coerced,
	// such as a non-integer Version or Severity.
	ErrUnsupportedValue = errors.New("unsupported value")

	// ErrIncompleteMessage reports builder input that cannot form a line.
	ErrIncompleteMessage = errors.New("incomplete message")

	// ErrSyslogPrefix reports an append that would mix prefixed and
	// unprefixed messages in one Log.
	ErrSyslogPrefix = errors.New("inconsistent syslog prefix")

	// ErrNoResults is returned by Log searches that match nothing.
	ErrNoResults = errors.New("no matching messages")
)

// LineError ties one of the sentinel errors above to the offending line.
type LineError struct {
	// Err is the error kind; errors.Is matches it against the sentinels.
	Err error
	// Line is the raw text of the offending line, if one exists yet.
	Line string
	// Number is the 1-based position of Line in its input, or 0.
	Number int
	// Reason adds detail to Err.
	Reason string
}

func (e *LineError) Error() string {
	msg := e.Err.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Number > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Number, msg)
	}
	if e.Line != "" {
		msg = fmt.Sprintf("%s: %q", msg, e.Line)
	}
	return msg
}

func (e *LineError) Unwrap() error {
	return e.Err
}

func lineError(kind error, line, reason string) *LineError {
	return &LineError{Err: kind, Line: line, Reason: reason}
}
