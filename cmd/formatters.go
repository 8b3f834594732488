package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ceflog/cef"
)

// renderStats displays a file summary
func renderStats(w io.Writer, path string, stats logStats) {
	headerColor.Fprintln(w, "CEF LOG: "+path)
	headerColor.Fprintln(w, strings.Repeat("=", 60))

	printField(w, "Lines", strconv.Itoa(stats.Lines))
	printField(w, "Syslog prefix", formatBool(stats.SyslogPrefix))
	printField(w, "Start", formatTime(stats.Start))
	printField(w, "End", formatTime(stats.End))
	printField(w, "Extensions", strconv.Itoa(stats.Extensions))

	if len(stats.Devices) > 0 {
		fmt.Fprintln(w)
		printSection(w, "Devices")
		for _, device := range sortedDevices(stats.Devices) {
			printField(w, device, plural(stats.Devices[device], "line", "lines"))
		}
	}

	if len(stats.Severities) > 0 {
		fmt.Fprintln(w)
		printSection(w, "Severities")
		for _, sev := range sortedSeverities(stats.Severities) {
			printField(w, strconv.Itoa(sev), plural(stats.Severities[sev], "line", "lines"))
		}
	}

	fmt.Fprintln(w, strings.Repeat("=", 60))
}

// renderMessage displays the fields of a single message
func renderMessage(w io.Writer, m cef.Message) {
	printSection(w, "Header")
	for key, value := range m.Headers().All() {
		printField(w, key, value)
	}
	if ts, ok := m.Timestamp(); ok {
		printField(w, "Timestamp", formatTime(&ts))
	}

	if ext, ok := m.Extensions(); ok {
		fmt.Fprintln(w)
		printSection(w, "Extensions")
		for key, value := range ext.All() {
			printField(w, key, value)
		}
	}
}

// printSection prints a section header
func printSection(w io.Writer, title string) {
	headerColor.Fprintf(w, "  %s\n", title)
	headerColor.Fprintln(w, "  "+strings.Repeat("─", len(title)))
}

// printField prints a key-value field
func printField(w io.Writer, key, value string) {
	if value == "" {
		value = "(not set)"
	}
	fmt.Fprintf(w, "  %-25s %s\n", key+":", value)
}

// formatBool returns a colored boolean string
func formatBool(b bool) string {
	if b {
		return successColor.Sprint("Yes")
	}
	return warningColor.Sprint("No")
}

// formatTime formats an optional timestamp
func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "n/a"
	}
	return t.Format("2006-01-02 15:04:05 MST")
}
