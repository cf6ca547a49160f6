// Package cli provides the command-line interface for GridLens.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gridlens-labs/gridlens/internal/config"
	"github.com/gridlens-labs/gridlens/pkg/adapter"
	"github.com/gridlens-labs/gridlens/pkg/adapters"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// App carries what every command needs: the loaded config, the logger and
// the adapter registry.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *adapter.Registry
}

// appKey is used to store the App in the command context.
type appKey struct{}

// FromContext retrieves the App from the command context.
func FromContext(ctx context.Context) *App {
	if a, ok := ctx.Value(appKey{}).(*App); ok {
		return a
	}
	return &App{
		Config:   &config.Config{},
		Logger:   slog.New(slog.DiscardHandler),
		Registry: adapters.DefaultRegistry(),
	}
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "gridlens",
		Short: "GridLens - uniform queries over heterogeneous data sources",
		Long: `GridLens connects analytics dashboards to heterogeneous data sources
behind one query contract: flat files, REST APIs, hosted Postgres projects,
proxied SQL databases and game backends all answer the same filter, sort
and pagination requests.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			app := &App{
				Config:   cfg,
				Logger:   newLogger(cmd.ErrOrStderr(), cfg.LogLevel),
				Registry: adapters.DefaultRegistry(),
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, app))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./gridlens.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error)")

	rootCmd.AddCommand(newSourcesCommand())
	rootCmd.AddCommand(newTestCommand())
	rootCmd.AddCommand(newSchemaCommand())
	rootCmd.AddCommand(newFetchCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
