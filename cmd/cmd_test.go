package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ceflog/cef"
	"ceflog/export"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

var testNow = time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)

const (
	wormLine  = "Oct 17 11:00:00 fw01 CEF:0|Security|threatmanager|1.0|100|worm stopped|10|src=10.0.0.1 dst=2.1.2.2"
	scanLine  = "Oct 17 09:30:00 fw01 CEF:0|Security|threatmanager|1.0|101|port scan|5|src=10.0.0.9 act=blocked"
	loginLine = "Oct 17 10:15:00 fw02 CEF:0|Acme|gateway|2.3|200|login failed|3|suser=alice"
)

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.cef")
	body := strings.Join([]string{wormLine, scanLine, loginLine}, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// runCLI executes the root command with a fixed clock and no config file.
func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Chdir(t.TempDir())
	testClock = cef.FixedClock(testNow)
	t.Cleanup(func() { testClock = nil })

	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--no-color"}, args...))
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func findCommand(parent *cobra.Command, name string) *cobra.Command {
	for _, cmd := range parent.Commands() {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func TestRootCommandStructure(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"parse", "stats", "search", "create", "replace"} {
		assert.NotNil(t, findCommand(root, name), "missing command %s", name)
	}
	searchCmd := findCommand(root, "search")
	require.NotNil(t, searchCmd)
	assert.NotNil(t, findCommand(searchCmd, "header"))
	assert.NotNil(t, findCommand(searchCmd, "extensions"))

	for _, flag := range []string{"output", "json", "config", "no-color", "quiet", "verbose", "metrics-file"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing flag %s", flag)
	}
}

func TestParseCmd_Text(t *testing.T) {
	stdout, stderr, err := runCLI(t, "parse", writeSample(t))
	require.NoError(t, err)

	assert.Equal(t, scanLine+"\n"+loginLine+"\n"+wormLine+"\n", stdout)
	assert.Contains(t, stderr, "CEFLog [3 lines]")
}

func TestParseCmd_JSON(t *testing.T) {
	stdout, _, err := runCLI(t, "parse", "--json", writeSample(t))
	require.NoError(t, err)

	var records []export.Record
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		var r export.Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		records = append(records, r)
	}
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, "port scan", first.Name)
	assert.Equal(t, "Oct 17 09:30:00 fw01", first.Prefix)
	require.NotNil(t, first.Timestamp)
	assert.True(t, first.Timestamp.Equal(time.Date(2026, time.October, 17, 9, 30, 0, 0, time.UTC)))
	assert.Equal(t, map[string]string{"src": "10.0.0.9", "act": "blocked"}, first.Extensions)
	assert.Equal(t, scanLine, first.Raw)
}

func TestParseCmd_YAML(t *testing.T) {
	stdout, _, err := runCLI(t, "parse", "-o", "yaml", writeSample(t))
	require.NoError(t, err)

	dec := yaml.NewDecoder(strings.NewReader(stdout))
	var names []string
	for {
		var r export.Record
		if err := dec.Decode(&r); err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"port scan", "login failed", "worm stopped"}, names)
}

func TestParseCmd_Msgpack(t *testing.T) {
	stdout, _, err := runCLI(t, "parse", "-o", "msgpack", writeSample(t))
	require.NoError(t, err)

	dec := msgpack.NewDecoder(strings.NewReader(stdout))
	var r export.Record
	require.NoError(t, dec.Decode(&r))
	assert.Equal(t, 5, r.Severity)
	assert.Equal(t, "101", r.DeviceEventClassID)
}

func TestParseCmd_InvalidLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cef")
	require.NoError(t, os.WriteFile(path, []byte(wormLine+"\nnot a cef line\n"), 0o600))

	_, _, err := runCLI(t, "parse", "-q", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, cef.ErrCEFLine)

	var lineErr *cef.LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 2, lineErr.Number)
}

func TestParseCmd_InvalidOutputFormat(t *testing.T) {
	_, _, err := runCLI(t, "parse", "-o", "xml", writeSample(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Output.Format")
}

func TestParseCmd_MetricsFile(t *testing.T) {
	textfile := filepath.Join(t.TempDir(), "ceflog.prom")

	_, _, err := runCLI(t, "parse", "-q", "--metrics-file", textfile, writeSample(t))
	require.NoError(t, err)

	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `ceflog_lines_parsed_total{prefix="syslog"}`)
}

func TestStatsCmd_Text(t *testing.T) {
	stdout, _, err := runCLI(t, "stats", writeSample(t))
	require.NoError(t, err)

	assert.Contains(t, stdout, "Lines:")
	assert.Contains(t, stdout, "Security threatmanager:")
	assert.Contains(t, stdout, "2 lines")
	assert.Contains(t, stdout, "2026-10-17 09:30:00 UTC")
	assert.Contains(t, stdout, "2026-10-17 11:00:00 UTC")
}

func TestStatsCmd_JSON(t *testing.T) {
	stdout, _, err := runCLI(t, "stats", "--json", writeSample(t))
	require.NoError(t, err)

	var stats logStats
	require.NoError(t, json.Unmarshal([]byte(stdout), &stats))
	assert.Equal(t, 3, stats.Lines)
	assert.True(t, stats.SyslogPrefix)
	assert.Equal(t, 5, stats.Extensions)
	assert.Equal(t, map[string]int{"Security threatmanager": 2, "Acme gateway": 1}, stats.Devices)
	assert.Equal(t, map[int]int{10: 1, 5: 1, 3: 1}, stats.Severities)
}

func TestSearchHeaderCmd(t *testing.T) {
	path := writeSample(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "plain query",
			args: []string{"Acme"},
			want: loginLine + "\n",
		},
		{
			name: "absolute start",
			args: []string{"threatmanager", "--start", "Oct 17 10:00:00"},
			want: wormLine + "\n",
		},
		{
			name: "relative start is inclusive",
			args: []string{"Security", "--start", "last 1h"},
			want: wormLine + "\n",
		},
		{
			name: "end bound",
			args: []string{"Security", "--end", "2026-10-17T10:00:00Z"},
			want: scanLine + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"search", "header", "-q", path}, tt.args...)
			stdout, _, err := runCLI(t, args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stdout)
		})
	}
}

func TestSearchHeaderCmd_InvalidBound(t *testing.T) {
	_, _, err := runCLI(t, "search", "header", writeSample(t), "Acme", "--start", "someday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid start time expression")
}

func TestSearchExtensionsCmd(t *testing.T) {
	path := writeSample(t)

	stdout, stderr, err := runCLI(t, "search", "extensions", path, "suser")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "No matching lines")

	stdout, _, err = runCLI(t, "search", "extensions", "-q", "--keys", path, "suser")
	require.NoError(t, err)
	assert.Equal(t, loginLine+"\n", stdout)

	stdout, _, err = runCLI(t, "search", "ext", "-q", path, "blocked")
	require.NoError(t, err)
	assert.Equal(t, scanLine+"\n", stdout)
}

func TestCreateCmd(t *testing.T) {
	stdout, _, err := runCLI(t, "create",
		"--vendor", "Security", "--product", "threatmanager", "--device-version", "1.0",
		"--event-class-id", "100", "--name", "worm successfully stopped", "--severity", "10",
		"-e", "src=10.0.0.1", "-e", "dst=2.1.2.2")
	require.NoError(t, err)

	assert.Equal(t, "CEF:0|Security|threatmanager|1.0|100|worm successfully stopped|10|src=10.0.0.1 dst=2.1.2.2\n", stdout)
}

func TestCreateCmd_SyslogPrefix(t *testing.T) {
	stdout, _, err := runCLI(t, "create", "--syslog-prefix", "--hostname", "fw01",
		"--vendor", "V", "--product", "P", "--device-version", "1", "--event-class-id", "7", "--name", "N", "--severity", "1")
	require.NoError(t, err)
	assert.Equal(t, "Oct 17 12:00:00 fw01 CEF:0|V|P|1|7|N|1|\n", stdout)

	stdout, _, err = runCLI(t, "create", "--syslog-prefix", "--hostname", "fw01", "--timestamp", "Oct 5 08:00:00",
		"--vendor", "V", "--product", "P", "--device-version", "1", "--event-class-id", "7", "--name", "N", "--severity", "1")
	require.NoError(t, err)
	assert.Equal(t, "Oct 05 08:00:00 fw01 CEF:0|V|P|1|7|N|1|\n", stdout)
}

func TestCreateCmd_Errors(t *testing.T) {
	_, _, err := runCLI(t, "create", "--syslog-prefix", "--name", "N")
	assert.ErrorIs(t, err, cef.ErrIncompleteMessage)

	_, _, err = runCLI(t, "create", "--name", "N", "-e", "novalue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected key=value")

	_, _, err = runCLI(t, "create", "--name", "N", "-e", "bad key=1")
	assert.ErrorIs(t, err, cef.ErrUnsupportedValue)
}

func TestReplaceCmd_Text(t *testing.T) {
	stdout, _, err := runCLI(t, "replace", wormLine, "--name", "worm quarantined", "-e", "dst=9.9.9.9")
	require.NoError(t, err)

	assert.Contains(t, stdout, "worm quarantined")
	assert.Contains(t, stdout, "9.9.9.9")
	assert.Contains(t, stdout, "10.0.0.1")
	assert.NotContains(t, stdout, "2.1.2.2")
}

func TestReplaceCmd_JSON(t *testing.T) {
	stdout, _, err := runCLI(t, "replace", "--json", wormLine,
		"--severity", "3", "--clear-extensions", "-e", "act=quarantine")
	require.NoError(t, err)

	var r export.Record
	require.NoError(t, json.Unmarshal([]byte(stdout), &r))
	assert.Equal(t, 3, r.Severity)
	assert.Equal(t, "worm stopped", r.Name)
	assert.Equal(t, map[string]string{"act": "quarantine"}, r.Extensions)
	assert.Equal(t, wormLine, r.Raw)
}

func TestReplaceCmd_InvalidLine(t *testing.T) {
	_, _, err := runCLI(t, "replace", "CEF:0|only|three", "--name", "x")
	assert.ErrorIs(t, err, cef.ErrIncompleteHeader)
}

func TestParseAssignments(t *testing.T) {
	fields, err := parseAssignments([]string{"a=1", "msg=x=y", "empty="})
	require.NoError(t, err)
	assert.Equal(t, []cef.Field{
		{Key: "a", Value: "1"},
		{Key: "msg", Value: "x=y"},
		{Key: "empty", Value: ""},
	}, fields)

	_, err = parseAssignments([]string{"=1"})
	assert.Error(t, err)
}
