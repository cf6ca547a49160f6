package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionCommand shows build information.
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "gridlens %s\n", Version)
			_, _ = fmt.Fprintf(out, "  build date: %s\n", BuildDate)
			_, _ = fmt.Fprintf(out, "  git commit: %s\n", GitCommit)
		},
	}
}
