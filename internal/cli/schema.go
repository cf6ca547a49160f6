package cli

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// newSchemaCommand shows the inferred schema of one source.
func newSchemaCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "schema <source>",
		Short: "Show the inferred schema of a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := FromContext(cmd.Context())

			adp, _, err := app.connectSource(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer func() { _ = adp.Disconnect() }()

			schema, err := adp.FetchSchema(cmd.Context())
			if err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(schema)
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Column", "Type", "Nullable"})
			for _, col := range schema.Columns {
				nullable := "no"
				if col.Nullable {
					nullable = "yes"
				}
				t.AppendRow(table.Row{col.Name, string(col.Type), nullable})
			}
			t.Render()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "(%d rows sampled)\n", schema.RowCount)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "table", "Output format (table|json)")
	return cmd
}
