package cmd

import (
	"errors"

	"ceflog/cef"
	"ceflog/search"

	"github.com/spf13/cobra"
)

// newSearchCmd creates the 'search' command group
func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search a CEF file",
		Long: `Search the header fields or extensions of a CEF file.

Time bounds accept "now", relative expressions ("last 2h"), RFC 3339 and
"2006-01-02 15:04:05" times, or syslog stamps ("Oct 17 08:15:00"). Bounds are
inclusive and only apply to files whose lines carry a syslog prefix.`,
	}

	cmd.AddCommand(newSearchHeaderCmd())
	cmd.AddCommand(newSearchExtensionsCmd())

	return cmd
}

// newSearchHeaderCmd creates the 'search header' subcommand
func newSearchHeaderCmd() *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "header <file> <query>",
		Short: "Find lines whose header fields contain a value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], start, end, func(log *cef.Log, opts []cef.SearchOption) ([]cef.Message, error) {
				return log.SearchHeader(args[1], opts...)
			})
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Earliest timestamp to include")
	cmd.Flags().StringVar(&end, "end", "", "Latest timestamp to include")

	return cmd
}

// newSearchExtensionsCmd creates the 'search extensions' subcommand
func newSearchExtensionsCmd() *cobra.Command {
	var start, end string
	var keys bool

	cmd := &cobra.Command{
		Use:     "extensions <file> <query>",
		Aliases: []string{"ext"},
		Short:   "Find lines whose extensions contain a value (or key with --keys)",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], start, end, func(log *cef.Log, opts []cef.SearchOption) ([]cef.Message, error) {
				if keys {
					opts = append(opts, cef.WithKeys())
				}
				return log.SearchExtensions(args[1], opts...)
			})
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Earliest timestamp to include")
	cmd.Flags().StringVar(&end, "end", "", "Latest timestamp to include")
	cmd.Flags().BoolVar(&keys, "keys", false, "Also match extension keys")

	return cmd
}

type searchFunc func(log *cef.Log, opts []cef.SearchOption) ([]cef.Message, error)

func runSearch(cmd *cobra.Command, path, start, end string, find searchFunc) error {
	app, cleanup, err := initApp(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	opts, err := search.NewTimeRangeParser(app.Clock).SearchOptions(start, end)
	if err != nil {
		return err
	}

	log, err := parseFile(cmd, app, path)
	if err != nil {
		return err
	}

	results, err := find(log, opts)
	if errors.Is(err, cef.ErrNoResults) {
		if !quiet {
			warningColor.Fprintln(cmd.ErrOrStderr(), "No matching lines")
		}
		return nil
	}
	if err != nil {
		return err
	}
	app.Sugar.Debugw("Search complete", "path", path, "matches", len(results))

	enc, err := newEncoder(app, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := enc.EncodeMessages(results); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if isText(app) && !quiet {
		infoColor.Fprintf(cmd.ErrOrStderr(), "%s of %d\n", plural(len(results), "match", "matches"), log.Len())
	}
	return nil
}
