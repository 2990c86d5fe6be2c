package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/civicsync/civicsync/cmd/civicsync/app"
)

func newVersionCommand(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "civicsync %s (commit %s, built %s)\n", a.Version(), a.Commit(), a.Date())
		},
	}
}
