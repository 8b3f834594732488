package cmd

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"ceflog/cef"

	"github.com/spf13/cobra"
)

// newParseCmd creates the 'parse' subcommand
func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a CEF file",
		Long: `Parse every line of a CEF file and print the resulting log.

Text output prints the raw lines in log order (sorted by timestamp when the
lines carry a syslog prefix). Structured formats print one record per line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := initApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			log, err := parseFile(cmd, app, args[0])
			if err != nil {
				return err
			}

			enc, err := newEncoder(app, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := enc.EncodeLog(log); err != nil {
				return err
			}
			if err := enc.Close(); err != nil {
				return err
			}

			if isText(app) && !quiet {
				infoColor.Fprintf(cmd.ErrOrStderr(), "%s\n", log)
			}
			return nil
		},
	}

	return cmd
}

// logStats summarises a parsed Log.
type logStats struct {
	Lines        int            `json:"lines" yaml:"lines" msgpack:"lines"`
	SyslogPrefix bool           `json:"syslog_prefix" yaml:"syslog_prefix" msgpack:"syslog_prefix"`
	Start        *time.Time     `json:"start,omitempty" yaml:"start,omitempty" msgpack:"start,omitempty"`
	End          *time.Time     `json:"end,omitempty" yaml:"end,omitempty" msgpack:"end,omitempty"`
	Extensions   int            `json:"extensions" yaml:"extensions" msgpack:"extensions"`
	Devices      map[string]int `json:"devices" yaml:"devices" msgpack:"devices"`
	Severities   map[int]int    `json:"severities" yaml:"severities" msgpack:"severities"`
}

func collectStats(log *cef.Log) logStats {
	stats := logStats{
		Lines:        log.Len(),
		SyslogPrefix: log.HasSyslogPrefix(),
		Devices:      make(map[string]int),
		Severities:   make(map[int]int),
	}
	if start, end, ok := log.TimeRange(); ok {
		stats.Start, stats.End = &start, &end
	}
	for _, m := range log.All() {
		stats.Extensions += m.ExtensionCount()
		stats.Devices[m.DeviceVendor()+" "+m.DeviceProduct()]++
		stats.Severities[m.Severity()]++
	}
	return stats
}

// newStatsCmd creates the 'stats' subcommand
func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Summarise a CEF file",
		Long:  "Parse a CEF file and report line counts, time range, devices and severities.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := initApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			log, err := parseFile(cmd, app, args[0])
			if err != nil {
				return err
			}
			stats := collectStats(log)

			if isText(app) {
				renderStats(cmd.OutOrStdout(), args[0], stats)
				return nil
			}

			enc, err := newEncoder(app, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := enc.EncodeValue(stats); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	return cmd
}

func sortedDevices(devices map[string]int) []string {
	return slices.Sorted(maps.Keys(devices))
}

func sortedSeverities(severities map[int]int) []int {
	return slices.Sorted(maps.Keys(severities))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
