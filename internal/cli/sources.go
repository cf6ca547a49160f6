package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// newSourcesCommand lists the configured sources.
func newSourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured data sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := FromContext(cmd.Context())

			names := app.Config.SourceNames()
			if len(names) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No sources configured.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Name", "Type", "Registered"})

			for _, name := range names {
				cfg, _ := app.Config.Source(name)
				registered := "yes"
				if !app.Registry.IsRegistered(cfg.Type) {
					registered = "no"
				}
				t.AppendRow(table.Row{name, string(cfg.Type), registered})
			}
			t.Render()
			return nil
		},
	}
}
