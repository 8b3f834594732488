// Package cmd provides the ceflog command line.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"ceflog/bootstrap"
	"ceflog/cef"
	"ceflog/config"
	"ceflog/export"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags
var (
	outputFormat string
	outputJSON   bool
	configFile   string
	noColor      bool
	quiet        bool
	verbose      bool
	metricsFile  string
)

// testClock pins the clock used by commands; nil uses the configured zone.
var testClock cef.Clock

// NewRootCmd creates the ceflog command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ceflog",
		Short: "Parse, search and build CEF log lines",
		Long: `Parse, search and build Common Event Format (CEF) log lines.

Lines may carry an RFC 3164 syslog prefix ("Oct 17 08:15:00 host CEF:0|...").
Files whose lines carry the prefix are sorted by timestamp; the year of each
timestamp is inferred relative to the current date.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "Output format: text, json, yaml or msgpack")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format (same as --output json)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: ./ceflog.yaml or ./config/ceflog.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newReplaceCmd())

	return rootCmd
}

// initApp builds the shared components for one command run. The returned
// cleanup flushes logs and writes metrics.
func initApp(cmd *cobra.Command) (*bootstrap.App, func(), error) {
	app, err := bootstrap.NewApp(bootstrap.AppOptions{
		ConfigPath: configFile,
		LogOutput:  cmd.ErrOrStderr(),
		Clock:      testClock,
		Override:   applyFlags,
	})
	if err != nil {
		return nil, nil, err
	}
	if !app.Config.Output.Color {
		color.NoColor = true
	}

	cleanup := func() {
		if err := app.Shutdown(); err != nil {
			errorColor.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}
	return app, cleanup, nil
}

// applyFlags copies persistent flags over the loaded configuration.
func applyFlags(c *config.Config) {
	if outputFormat != "" {
		c.Output.Format = strings.ToLower(outputFormat)
	}
	if outputJSON {
		c.Output.Format = string(export.FormatJSON)
	}
	if noColor {
		c.Output.Color = false
	}
	if verbose {
		c.Log.Level = "debug"
	}
	if metricsFile != "" {
		c.Metrics.Textfile = metricsFile
	}
}

// newEncoder returns an encoder for the configured output format.
func newEncoder(app *bootstrap.App, w io.Writer) (*export.Encoder, error) {
	format, err := export.ParseFormat(app.Config.Output.Format)
	if err != nil {
		return nil, err
	}
	return export.NewEncoder(w, format, app.Clock)
}

// isText reports whether output should be rendered for humans.
func isText(app *bootstrap.App) bool {
	return app.Config.Output.Format == string(export.FormatText)
}

// startSpinner shows progress for text output when stderr is a terminal.
func startSpinner(cmd *cobra.Command, app *bootstrap.App, suffix string) func() {
	f, ok := cmd.ErrOrStderr().(*os.File)
	if quiet || !isText(app) || !ok || !isatty.IsTerminal(f.Fd()) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(f))
	s.Suffix = " " + suffix
	s.Start()
	return s.Stop
}

// parseFile reads path with the app's parser behind a spinner.
func parseFile(cmd *cobra.Command, app *bootstrap.App, path string) (*cef.Log, error) {
	stop := startSpinner(cmd, app, fmt.Sprintf("Parsing %s...", path))
	log, err := app.Parser.ParseFile(path)
	stop()
	if err != nil {
		return nil, err
	}
	return log, nil
}
