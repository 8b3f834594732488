package metrics

import (
	"errors"

	"ceflog/cef"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LinesParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ceflog_lines_parsed_total",
			Help: "Total number of CEF lines parsed",
		},
		[]string{"prefix"},
	)

	ParseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ceflog_parse_failures_total",
			Help: "Total number of CEF lines that failed to parse",
		},
		[]string{"kind"},
	)

	AppendRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ceflog_append_rejections_total",
			Help: "Total number of messages rejected for an inconsistent syslog prefix",
		},
	)

	ParseCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ceflog_parse_cache_hits_total",
			Help: "Total number of lines served from the parsed line cache",
		},
	)

	FileParseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ceflog_file_parse_duration_seconds",
			Help:    "Time taken to parse a whole file into a log",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// PrefixLabel returns the LinesParsed label for m.
func PrefixLabel(m cef.Message) string {
	if m.HasSyslogPrefix() {
		return "syslog"
	}
	return "bare"
}

// FailureKind maps a parse or append error to a ParseFailures label.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, cef.ErrIncompleteHeader):
		return "incomplete_header"
	case errors.Is(err, cef.ErrCEFLine):
		return "header_format"
	case errors.Is(err, cef.ErrUnsupportedValue):
		return "unsupported_value"
	case errors.Is(err, cef.ErrSyslogPrefix):
		return "syslog_prefix"
	default:
		return "other"
	}
}

// WriteTextfile writes every registered metric to path in the Prometheus
// text format, for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
