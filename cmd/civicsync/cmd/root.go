// Package cmd defines the civicsync CLI commands.
package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/civicsync/civicsync/cmd/civicsync/app"
)

// Execute runs the CLI with the given arguments.
func Execute(ctx context.Context, a *app.App, args []string) error {
	root := NewRootCommand(a)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand creates the root command with all subcommands attached.
func NewRootCommand(a *app.App) *cobra.Command {
	root := &cobra.Command{
		Use:     "civicsync",
		Short:   "Congressional data synchronization",
		Version: a.Version(),
		Long: `Civicsync keeps a document store of US congressional data current:
legislators, bills, roll-call votes, committee rosters, contact details,
and itemized campaign contributions, pulled from the congress.gov API,
the House clerk's roll-call feed, the unitedstates legislator bulk data,
and the FEC API.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			a.RefreshLogger()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cfg := a.Config()
	root.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "", "config file (default is $HOME/.civicsync.yaml)")
	root.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	root.PersistentFlags().BoolVarP(&cfg.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	root.PersistentFlags().BoolVar(&cfg.NoColor, "no-color", false, "disable colored output")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: trace, debug, info, warn, error (overrides -v/-q)")

	root.SetVersionTemplate("civicsync {{.Version}}\n")

	root.AddCommand(newSyncCommand(a))
	root.AddCommand(newPipelinesCommand(a))
	root.AddCommand(newVersionCommand(a))

	return root
}

// ExitOnError prints an error to stderr and exits with status 1.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
