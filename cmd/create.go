package cmd

import (
	"fmt"
	"strings"
	"time"

	"ceflog/bootstrap"
	"ceflog/cef"
	"ceflog/search"

	"github.com/spf13/cobra"
)

// headerFlags holds the header values shared by create and replace.
type headerFlags struct {
	version            int
	deviceVendor       string
	deviceProduct      string
	deviceVersion      string
	deviceEventClassID string
	name               string
	severity           int
	extensions         []string
}

func (h *headerFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&h.version, "version", 0, "CEF format version")
	cmd.Flags().StringVar(&h.deviceVendor, "vendor", "", "Device vendor")
	cmd.Flags().StringVar(&h.deviceProduct, "product", "", "Device product")
	cmd.Flags().StringVar(&h.deviceVersion, "device-version", "", "Device version")
	cmd.Flags().StringVar(&h.deviceEventClassID, "event-class-id", "", "Device event class ID")
	cmd.Flags().StringVar(&h.name, "name", "", "Event name")
	cmd.Flags().IntVar(&h.severity, "severity", 0, "Event severity")
	cmd.Flags().StringArrayVarP(&h.extensions, "extension", "e", nil, "Extension as key=value (repeatable)")
}

// parseAssignments splits key=value pairs at the first '='.
func parseAssignments(pairs []string) ([]cef.Field, error) {
	fields := make([]cef.Field, 0, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid extension %q: expected key=value", pair)
		}
		fields = append(fields, cef.Field{Key: key, Value: value})
	}
	return fields, nil
}

// newCreateCmd creates the 'create' subcommand
func newCreateCmd() *cobra.Command {
	var (
		header       headerFlags
		syslogPrefix bool
		hostname     string
		timestamp    string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Build a CEF line",
		Long: `Build a CEF line from header values and extensions.

With --syslog-prefix the line starts with "Mon DD HH:MM:SS hostname"; the
timestamp defaults to now and --hostname is required.`,
		Example: `  ceflog create --vendor Security --product threatmanager --device-version 1.0 \
    --event-class-id 100 --name "worm successfully stopped" --severity 10 \
    -e src=10.0.0.1 -e dst=2.1.2.2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := initApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			extensions, err := parseAssignments(header.extensions)
			if err != nil {
				return err
			}

			var ts time.Time
			if timestamp != "" {
				ts, err = search.NewTimeRangeParser(app.Clock).ParseTime(timestamp)
				if err != nil {
					return fmt.Errorf("invalid timestamp: %w", err)
				}
			}

			m, err := newLineParser(app).CreateLine(cef.LineSpec{
				Version:            header.version,
				DeviceVendor:       header.deviceVendor,
				DeviceProduct:      header.deviceProduct,
				DeviceVersion:      header.deviceVersion,
				DeviceEventClassID: header.deviceEventClassID,
				Name:               header.name,
				Severity:           header.severity,
				SyslogPrefix:       syslogPrefix,
				Timestamp:          ts,
				Hostname:           hostname,
				Extensions:         extensions,
			})
			if err != nil {
				return err
			}
			return writeMessage(cmd, app, m, false)
		},
	}

	header.register(cmd)
	cmd.Flags().BoolVar(&syslogPrefix, "syslog-prefix", false, "Prepend a syslog timestamp and hostname")
	cmd.Flags().StringVar(&hostname, "hostname", "", "Hostname for the syslog prefix")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "Timestamp for the syslog prefix (default now)")

	return cmd
}

// newReplaceCmd creates the 'replace' subcommand
func newReplaceCmd() *cobra.Command {
	var (
		header          headerFlags
		prefix          string
		clearExtensions bool
	)

	cmd := &cobra.Command{
		Use:   "replace <line>",
		Short: "Override fields of a CEF line",
		Long: `Parse a CEF line and print it with the given fields replaced.

Only flags that are set are applied. Extensions given with -e are merged over
the existing ones; --clear-extensions drops them all first. The raw line text
is kept as parsed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := initApp(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			m, err := newLineParser(app).ParseLine(args[0])
			if err != nil {
				return err
			}

			extensions, err := parseAssignments(header.extensions)
			if err != nil {
				return err
			}

			var o cef.Overrides
			flags := cmd.Flags()
			if flags.Changed("prefix") {
				o.Prefix = cef.Ptr(prefix)
			}
			if flags.Changed("version") {
				o.Version = cef.Ptr(header.version)
			}
			if flags.Changed("vendor") {
				o.DeviceVendor = cef.Ptr(header.deviceVendor)
			}
			if flags.Changed("product") {
				o.DeviceProduct = cef.Ptr(header.deviceProduct)
			}
			if flags.Changed("device-version") {
				o.DeviceVersion = cef.Ptr(header.deviceVersion)
			}
			if flags.Changed("event-class-id") {
				o.DeviceEventClassID = cef.Ptr(header.deviceEventClassID)
			}
			if flags.Changed("name") {
				o.Name = cef.Ptr(header.name)
			}
			if flags.Changed("severity") {
				o.Severity = cef.Ptr(header.severity)
			}

			if clearExtensions {
				m = m.Replace(cef.Overrides{Extensions: map[string]string{}})
			}
			if len(extensions) > 0 {
				o.Extensions = make(map[string]string, len(extensions))
				for _, f := range extensions {
					o.Extensions[f.Key] = f.Value
				}
			}

			return writeMessage(cmd, app, m.Replace(o), true)
		},
	}

	header.register(cmd)
	cmd.Flags().StringVar(&prefix, "prefix", "", "Syslog prefix (\"Mon DD HH:MM:SS host\")")
	cmd.Flags().BoolVar(&clearExtensions, "clear-extensions", false, "Remove all extensions before applying -e")

	return cmd
}

func newLineParser(app *bootstrap.App) *cef.Parser {
	return cef.NewParser(cef.WithClock(app.Clock))
}

// writeMessage prints m in the configured format. Text output is the raw
// line, or the field view when detailed is set.
func writeMessage(cmd *cobra.Command, app *bootstrap.App, m cef.Message, detailed bool) error {
	if isText(app) && detailed {
		renderMessage(cmd.OutOrStdout(), m)
		return nil
	}

	enc, err := newEncoder(app, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}
