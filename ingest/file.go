// Package ingest reads CEF files into logs.
package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"ceflog/cef"
	"ceflog/metrics"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Default reader settings.
const (
	DefaultMaxLineSize = 1024 * 1024 // 1MB
	DefaultCacheSize   = 1024
	initialBufferSize  = 64 * 1024
)

// Options configures a FileParser. Zero values select the defaults.
type Options struct {
	// Clock resolves timestamps for parsed messages and the resulting Log.
	Clock cef.Clock
	// CacheSize bounds the parsed line cache; negative disables it.
	CacheSize int
	// MaxLineSize is the longest accepted line in bytes.
	MaxLineSize int
	// SkipBlankLines ignores whitespace-only lines instead of failing on them.
	SkipBlankLines bool
	Logger         *zap.SugaredLogger
}

// FileParser turns line-oriented CEF input into a cef.Log. Parsing stops
// at the first line that fails to parse or append.
type FileParser struct {
	parser      *cef.Parser
	clock       cef.Clock
	cache       *lru.Cache[string, cef.Message]
	maxLineSize int
	skipBlank   bool
	logger      *zap.SugaredLogger
}

// NewFileParser creates a FileParser from opts.
func NewFileParser(opts Options) (*FileParser, error) {
	fp := &FileParser{
		clock:       opts.Clock,
		maxLineSize: opts.MaxLineSize,
		skipBlank:   opts.SkipBlankLines,
		logger:      opts.Logger,
	}
	if fp.clock == nil {
		fp.clock = cef.SystemClock
	}
	if fp.maxLineSize <= 0 {
		fp.maxLineSize = DefaultMaxLineSize
	}
	if fp.logger == nil {
		fp.logger = zap.NewNop().Sugar()
	}
	fp.parser = cef.NewParser(cef.WithClock(fp.clock))

	size := opts.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}
	if size > 0 {
		cache, err := lru.New[string, cef.Message](size)
		if err != nil {
			return nil, fmt.Errorf("failed to create parse cache: %w", err)
		}
		fp.cache = cache
	}
	return fp, nil
}

// ParseFile parses every line of a file with default options.
func ParseFile(path string) (*cef.Log, error) {
	fp, err := NewFileParser(Options{})
	if err != nil {
		return nil, err
	}
	return fp.ParseFile(path)
}

// ParseFile opens path and parses it line by line.
func (fp *FileParser) ParseFile(path string) (*cef.Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	start := time.Now()
	log, err := fp.ParseReader(f)
	if err != nil {
		fp.logger.Warnw("Failed to parse file", "path", path, "error", err)
		return nil, err
	}
	metrics.FileParseDuration.Observe(time.Since(start).Seconds())
	fp.logger.Debugw("Parsed file", "path", path, "lines", log.Len(),
		"syslog_prefix", log.HasSyslogPrefix(), "duration", time.Since(start))
	return log, nil
}

// ParseReader parses r line by line into a new Log. Line failures are
// returned as *cef.LineError with Number set; read failures are returned
// as-is.
func (fp *FileParser) ParseReader(r io.Reader) (*cef.Log, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(initialBufferSize, fp.maxLineSize)), fp.maxLineSize)

	log := cef.NewLogWithClock(fp.clock)
	number := 0
	for scanner.Scan() {
		number++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if fp.skipBlank && strings.TrimSpace(line) == "" {
			continue
		}

		m, err := fp.parseLine(line)
		if err == nil {
			err = log.Append(m)
			if errors.Is(err, cef.ErrSyslogPrefix) {
				metrics.AppendRejections.Inc()
			}
		}
		if err != nil {
			metrics.ParseFailures.WithLabelValues(metrics.FailureKind(err)).Inc()
			return nil, withLineNumber(err, number)
		}
		metrics.LinesParsed.WithLabelValues(metrics.PrefixLabel(m)).Inc()
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read line %d: %w", number+1, err)
	}
	return log, nil
}

func (fp *FileParser) parseLine(line string) (cef.Message, error) {
	if fp.cache != nil {
		if m, ok := fp.cache.Get(line); ok {
			metrics.ParseCacheHits.Inc()
			return m, nil
		}
	}
	m, err := fp.parser.ParseLine(line)
	if err != nil {
		return cef.Message{}, err
	}
	if fp.cache != nil {
		fp.cache.Add(line, m)
	}
	return m, nil
}

func withLineNumber(err error, number int) error {
	var lineErr *cef.LineError
	if errors.As(err, &lineErr) {
		lineErr.Number = number
		return lineErr
	}
	return fmt.Errorf("line %d: %w", number, err)
}
