package export

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"ceflog/cef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

var testNow = time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)

const (
	prefixedLine = "Apr 15 22:11:20 testhost CEF:0|Test Vendor|Test Product|Test Version|100|Test Name|7|src=1.1.1.1 dst=1.1.1.2"
	bareLine     = "CEF:1|Acme|gateway|2.3|login|Login failed|3|"
)

func mustParse(t *testing.T, line string) cef.Message {
	t.Helper()
	m, err := cef.NewParser(cef.WithClock(cef.FixedClock(testNow))).ParseLine(line)
	require.NoError(t, err)
	return m
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"text", "JSON", " yaml ", "msgpack"} {
		_, err := ParseFormat(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestNewEncoder_UnknownFormat(t *testing.T) {
	_, err := NewEncoder(&bytes.Buffer{}, Format("csv"), nil)
	assert.Error(t, err)
}

func TestNewRecord(t *testing.T) {
	r := NewRecord(mustParse(t, prefixedLine), testNow)

	assert.Equal(t, "Apr 15 22:11:20 testhost", r.Prefix)
	require.NotNil(t, r.Timestamp)
	assert.True(t, r.Timestamp.Equal(time.Date(2026, time.April, 15, 22, 11, 20, 0, time.UTC)))
	assert.Equal(t, 0, r.Version)
	assert.Equal(t, "Test Vendor", r.DeviceVendor)
	assert.Equal(t, "100", r.DeviceEventClassID)
	assert.Equal(t, 7, r.Severity)
	assert.Equal(t, map[string]string{"src": "1.1.1.1", "dst": "1.1.1.2"}, r.Extensions)
	assert.Equal(t, prefixedLine, r.Raw)

	bare := NewRecord(mustParse(t, bareLine), testNow)
	assert.Empty(t, bare.Prefix)
	assert.Nil(t, bare.Timestamp)
	assert.Nil(t, bare.Extensions)
}

func TestEncoder_Text(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, FormatText, cef.FixedClock(testNow))
	require.NoError(t, err)

	require.NoError(t, enc.Encode(mustParse(t, prefixedLine)))
	require.NoError(t, enc.Encode(mustParse(t, bareLine)))
	require.NoError(t, enc.Close())

	assert.Equal(t, prefixedLine+"\n"+bareLine+"\n", buf.String())
}

func TestEncoder_JSON(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, FormatJSON, cef.FixedClock(testNow))
	require.NoError(t, err)

	require.NoError(t, enc.Encode(mustParse(t, bareLine)))

	line := strings.TrimSpace(buf.String())
	assert.NotContains(t, line, `"prefix"`)
	assert.NotContains(t, line, `"timestamp"`)
	assert.NotContains(t, line, `"extensions"`)

	var r Record
	require.NoError(t, json.Unmarshal([]byte(line), &r))
	assert.Equal(t, "login", r.DeviceEventClassID)
	assert.Equal(t, 1, r.Version)
}

func TestEncoder_YAML(t *testing.T) {
	log := cef.NewLogWithClock(cef.FixedClock(testNow))
	require.NoError(t, log.AppendLine(prefixedLine))
	require.NoError(t, log.AppendLine("Jan 02 03:04:05 host CEF:0|V|P|1|2|Early|1|a=b"))

	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, FormatYAML, cef.FixedClock(testNow))
	require.NoError(t, err)
	require.NoError(t, enc.EncodeLog(log))
	require.NoError(t, enc.Close())

	dec := yaml.NewDecoder(&buf)
	var names []string
	for {
		var r Record
		if err := dec.Decode(&r); err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Early", "Test Name"}, names)
}

func TestEncoder_Msgpack(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, FormatMsgpack, cef.FixedClock(testNow))
	require.NoError(t, err)
	require.NoError(t, enc.EncodeMessages([]cef.Message{mustParse(t, prefixedLine), mustParse(t, bareLine)}))

	dec := msgpack.NewDecoder(&buf)
	var first, second Record
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))

	assert.Equal(t, "Test Name", first.Name)
	require.NotNil(t, first.Timestamp)
	assert.Equal(t, 2026, first.Timestamp.Year())
	assert.Equal(t, "1.1.1.2", first.Extensions["dst"])
	assert.Equal(t, "Login failed", second.Name)
	assert.Nil(t, second.Timestamp)
}

func TestEncoder_EncodeValue(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, FormatJSON, nil)
	require.NoError(t, err)

	require.NoError(t, enc.EncodeValue(map[string]int{"lines": 2}))
	assert.JSONEq(t, `{"lines":2}`, buf.String())
}
