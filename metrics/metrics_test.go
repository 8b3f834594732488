package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"ceflog/cef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistration(t *testing.T) {
	assert.NotNil(t, LinesParsed)
	assert.NotNil(t, ParseFailures)
	assert.NotNil(t, AppendRejections)
	assert.NotNil(t, ParseCacheHits)
	assert.NotNil(t, FileParseDuration)
}

func TestFailureKind(t *testing.T) {
	_, headerErr := cef.ParseLine("garbage")
	_, incompleteErr := cef.ParseLine("CEF:0|V")
	_, valueErr := cef.ParseLine("CEF:0|V|P|1|1|N|high|")

	assert.Equal(t, "header_format", FailureKind(headerErr))
	assert.Equal(t, "incomplete_header", FailureKind(incompleteErr))
	assert.Equal(t, "unsupported_value", FailureKind(valueErr))
	assert.Equal(t, "syslog_prefix", FailureKind(cef.ErrSyslogPrefix))
	assert.Equal(t, "other", FailureKind(os.ErrNotExist))
}

func TestPrefixLabel(t *testing.T) {
	bare, err := cef.ParseLine("CEF:0|V|P|1|1|N|1|")
	require.NoError(t, err)
	assert.Equal(t, "bare", PrefixLabel(bare))

	prefixed, err := cef.ParseLine("Apr 15 22:11:20 host CEF:0|V|P|1|1|N|1|")
	require.NoError(t, err)
	assert.Equal(t, "syslog", PrefixLabel(prefixed))
}

func TestWriteTextfile(t *testing.T) {
	LinesParsed.WithLabelValues("bare").Inc()

	path := filepath.Join(t.TempDir(), "ceflog.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ceflog_lines_parsed_total")
}
