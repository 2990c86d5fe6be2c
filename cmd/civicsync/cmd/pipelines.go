package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/civicsync/civicsync/cmd/civicsync/app"
	"github.com/civicsync/civicsync/internal/pipelines"
	"github.com/civicsync/civicsync/pkg/store"
	"github.com/civicsync/civicsync/pkg/store/memory"
)

func newPipelinesCommand(_ *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "pipelines",
		Short: "List the sync pipelines and their dependencies",
		RunE: func(_ *cobra.Command, _ []string) error {
			registry, err := pipelines.NewRegistry(pipelines.Config{
				NewStore: func() store.Store { return memory.New() },
			})
			if err != nil {
				return err
			}

			order, err := registry.Resolve(nil)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PIPELINE\tDEPENDS ON")
			for _, name := range order {
				deps := "-"
				if p, ok := registry.Pipeline(name); ok && len(p.Deps()) > 0 {
					deps = strings.Join(p.Deps(), ", ")
				}
				fmt.Fprintf(w, "%s\t%s\n", name, deps)
			}
			return w.Flush()
		},
	}
}
