package cef

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"
)

// Log is an ordered collection of Messages that agree on syslog prefix
// presence. Prefixed Logs are kept sorted by ascending timestamp.
//
// A Log is not safe for concurrent mutation.
type Log struct {
	messages []Message
	clock    Clock
}

// NewLog creates an empty Log that resolves timestamps with the system
// clock.
func NewLog() *Log {
	return NewLogWithClock(SystemClock)
}

// NewLogWithClock creates an empty Log that resolves timestamps with c.
func NewLogWithClock(c Clock) *Log {
	if c == nil {
		c = SystemClock
	}
	return &Log{clock: c}
}

// String summarises the Log, e.g. "CEFLog [3 lines]".
func (l *Log) String() string {
	suffix := "s"
	if len(l.messages) == 1 {
		suffix = ""
	}
	return fmt.Sprintf("CEFLog [%d line%s]", len(l.messages), suffix)
}

// Len returns the number of Messages.
func (l *Log) Len() int { return len(l.messages) }

// IsEmpty reports whether the Log has no Messages.
func (l *Log) IsEmpty() bool { return len(l.messages) == 0 }

// HasSyslogPrefix reports the prefix status of the first Message, or false
// for an empty Log.
func (l *Log) HasSyslogPrefix() bool {
	return len(l.messages) > 0 && l.messages[0].HasSyslogPrefix()
}

// Messages returns a copy of the Messages in Log order.
func (l *Log) Messages() []Message {
	return slices.Clone(l.messages)
}

// At returns the i-th Message.
func (l *Log) At(i int) Message {
	return l.messages[i]
}

// All iterates over the Messages in Log order.
func (l *Log) All() iter.Seq2[int, Message] {
	return slices.All(l.messages)
}

// StartTime returns the timestamp of the first Message. ok is false for
// empty or unprefixed Logs.
func (l *Log) StartTime() (time.Time, bool) {
	if !l.HasSyslogPrefix() {
		return time.Time{}, false
	}
	return l.messages[0].TimestampAt(l.clock.Now())
}

// EndTime returns the timestamp of the last Message. ok is false for
// empty or unprefixed Logs.
func (l *Log) EndTime() (time.Time, bool) {
	if !l.HasSyslogPrefix() {
		return time.Time{}, false
	}
	return l.messages[len(l.messages)-1].TimestampAt(l.clock.Now())
}

// TimeRange returns StartTime and EndTime resolved against one instant.
func (l *Log) TimeRange() (start, end time.Time, ok bool) {
	if !l.HasSyslogPrefix() {
		return time.Time{}, time.Time{}, false
	}
	now := l.clock.Now()
	start, _ = l.messages[0].TimestampAt(now)
	end, _ = l.messages[len(l.messages)-1].TimestampAt(now)
	return start, end, true
}

// Append adds m to the Log. A Message whose prefix status differs from a
// non-empty Log is rejected with ErrSyslogPrefix and the Log is left
// unchanged.
func (l *Log) Append(m Message) error {
	if len(l.messages) > 0 && m.HasSyslogPrefix() != l.HasSyslogPrefix() {
		reason := "a line with a syslog prefix may not join a log without one"
		if !m.HasSyslogPrefix() {
			reason = "a line without a syslog prefix may not join a log with one"
		}
		return lineError(ErrSyslogPrefix, m.RawLine(), reason)
	}

	l.messages = append(l.messages, m)
	if l.HasSyslogPrefix() {
		l.sort()
	}
	return nil
}

// AppendLine parses line with the Log's clock and appends the result.
func (l *Log) AppendLine(line string) error {
	m, err := NewParser(WithClock(l.clock)).ParseLine(line)
	if err != nil {
		return err
	}
	return l.Append(m)
}

func (l *Log) sort() {
	now := l.clock.Now()
	slices.SortStableFunc(l.messages, func(a, b Message) int {
		ta, _ := a.TimestampAt(now)
		tb, _ := b.TimestampAt(now)
		return ta.Compare(tb)
	})
}

type searchOptions struct {
	start       *time.Time
	end         *time.Time
	includeKeys bool
}

// SearchOption narrows a Log search.
type SearchOption func(*searchOptions)

// WithStartTime drops Messages stamped before t. It defaults to the Log's
// StartTime and is ignored for unprefixed Logs.
func WithStartTime(t time.Time) SearchOption {
	return func(o *searchOptions) { o.start = &t }
}

// WithEndTime drops Messages stamped after t. It defaults to the Log's
// EndTime and is ignored for unprefixed Logs.
func WithEndTime(t time.Time) SearchOption {
	return func(o *searchOptions) { o.end = &t }
}

// WithKeys lets SearchExtensions fall back to matching extension keys when
// no value matches.
func WithKeys() SearchOption {
	return func(o *searchOptions) { o.includeKeys = true }
}

// SearchHeader returns the Messages, in Log order, with a header value
// containing query. It returns ErrNoResults when nothing matches.
func (l *Log) SearchHeader(query string, opts ...SearchOption) ([]Message, error) {
	return l.search(opts, func(m Message, _ searchOptions) bool {
		return containsValue(m.Headers(), query)
	})
}

// SearchExtensions returns the Messages, in Log order, with an extension
// value containing query, or with WithKeys an extension key containing it.
// It returns ErrNoResults when nothing matches.
func (l *Log) SearchExtensions(query string, opts ...SearchOption) ([]Message, error) {
	return l.search(opts, func(m Message, o searchOptions) bool {
		if containsValue(m.extensions, query) {
			return true
		}
		return o.includeKeys && containsKey(m.extensions, query)
	})
}

func (l *Log) search(opts []SearchOption, match func(Message, searchOptions) bool) ([]Message, error) {
	var o searchOptions
	for _, opt := range opts {
		opt(&o)
	}

	var results []Message
	for _, m := range l.candidates(o) {
		if match(m, o) {
			results = append(results, m)
		}
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return results, nil
}

// candidates applies the time bounds of o. Bounds only apply to prefixed
// Logs and are inclusive.
func (l *Log) candidates(o searchOptions) []Message {
	if !l.HasSyslogPrefix() {
		return l.messages
	}

	now := l.clock.Now()
	start, _ := l.messages[0].TimestampAt(now)
	end, _ := l.messages[len(l.messages)-1].TimestampAt(now)
	if o.start != nil {
		start = *o.start
	}
	if o.end != nil {
		end = *o.end
	}

	var out []Message
	for _, m := range l.messages {
		ts, _ := m.TimestampAt(now)
		if !ts.Before(start) && !ts.After(end) {
			out = append(out, m)
		}
	}
	return out
}

func containsValue(f Fields, query string) bool {
	for _, v := range f.All() {
		if strings.Contains(v, query) {
			return true
		}
	}
	return false
}

func containsKey(f Fields, query string) bool {
	for k := range f.All() {
		if strings.Contains(k, query) {
			return true
		}
	}
	return false
}
