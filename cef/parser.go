package cef

// Parser turns CEF text into Messages. A Parser holds no mutable state and
// is safe for concurrent use.
type Parser struct {
	clock Clock
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock sets the clock used for timestamps of parsed Messages and for
// default builder timestamps.
func WithClock(c Clock) Option {
	return func(p *Parser) {
		if c != nil {
			p.clock = c
		}
	}
}

// NewParser creates a Parser using the system clock unless overridden.
func NewParser(opts ...Option) *Parser {
	p := &Parser{clock: SystemClock}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Clock returns the parser's clock.
func (p *Parser) Clock() Clock {
	return p.clock
}

var defaultParser = NewParser()

// ParseLine parses a single CEF line with the system clock.
func ParseLine(line string) (Message, error) {
	return defaultParser.ParseLine(line)
}

// ParseLine parses a single CEF line. Failures are *LineError values
// wrapping ErrCEFLine, ErrIncompleteHeader or ErrUnsupportedValue.
func (p *Parser) ParseLine(line string) (Message, error) {
	t, err := tokenize(line)
	if err != nil {
		return Message{}, err
	}
	h, err := coerceHeader(line, t.fields)
	if err != nil {
		return Message{}, err
	}
	ext, err := parseExtensions(line, t.extension)
	if err != nil {
		return Message{}, err
	}
	return Message{
		rawLine:    line,
		rawHeader:  t.header,
		header:     h,
		extensions: ext,
		clock:      p.clock,
	}, nil
}
