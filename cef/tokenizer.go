package cef

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// headerFieldCount is the number of pipe-delimited header fields, counting
// the "CEF:<version>" field.
const headerFieldCount = 7

// matchTimeout bounds every pattern evaluation on untrusted input.
const matchTimeout = 250 * time.Millisecond

// headerField matches one header field: anything but an unescaped pipe.
const headerField = `(?:[^|]|(?<=\\)\|)*`

var (
	// headerPattern matches the header span: the first field, which must
	// contain the CEF marker, then up to six more fields and the trailing
	// separator. Everything after the seventh unescaped pipe is extension text.
	headerPattern = mustCompile(`^(?<first>[^|]*?CEF:` + headerField + `)` +
		`(?:(?<!\\)\|(?<field>` + headerField + `)){0,6}(?<!\\)\|?`)

	// extensionPattern matches one key=value pair. A key starts the input or
	// follows whitespace; a value runs until the whitespace before the next
	// key or the end of the input and never contains an unescaped '='.
	extensionPattern = mustCompile(`(?<![^\s])(?<key>[^\s=\\]+)=(?<value>(?:\\=|[^=])*?)(?=\s+[^\s=\\]+=|\s*$)`)
)

func mustCompile(expr string) *regexp2.Regexp {
	re := regexp2.MustCompile(expr, regexp2.None)
	re.MatchTimeout = matchTimeout
	return re
}

// tokens is the tokenizer output for one line.
type tokens struct {
	header    string
	fields    []string
	extension string
}

// tokenize splits line into its header span, the raw header fields and the
// extension tail. Header fields keep their escapes.
func tokenize(line string) (tokens, error) {
	m, err := headerPattern.FindStringMatch(line)
	if err != nil {
		return tokens{}, lineError(ErrCEFLine, line, err.Error())
	}
	if m == nil {
		return tokens{}, lineError(ErrCEFLine, line, "no CEF header found")
	}

	t := tokens{header: m.String()}
	t.fields = append(t.fields, m.GroupByName("first").String())
	for _, c := range m.GroupByName("field").Captures {
		t.fields = append(t.fields, c.String())
	}
	// The header pattern is anchored, so its match is a byte prefix of line.
	t.extension = line[len(t.header):]
	return t, nil
}

// parseExtensions splits the extension tail into ordered pairs. Duplicate
// keys keep their first position and their last value. A tail with no
// pairs yields empty Fields.
func parseExtensions(line, tail string) (Fields, error) {
	var ext Fields
	m, err := extensionPattern.FindStringMatch(tail)
	for ; m != nil && err == nil; m, err = extensionPattern.FindNextMatch(m) {
		key := m.GroupByName("key").String()
		ext.set(key, unescapeExtension(m.GroupByName("value").String()))
	}
	if err != nil {
		return Fields{}, lineError(ErrCEFLine, line, err.Error())
	}
	return ext, nil
}

func unescapeHeader(s string) string {
	return strings.ReplaceAll(s, `\|`, "|")
}

func escapeHeader(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func unescapeExtension(s string) string {
	return strings.ReplaceAll(s, `\=`, "=")
}

func escapeExtension(s string) string {
	return strings.ReplaceAll(s, "=", `\=`)
}
