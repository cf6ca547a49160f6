// Package main provides the GridLens SQL proxy server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridlens-labs/gridlens/internal/config"
	"github.com/gridlens-labs/gridlens/internal/proxy"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		addr    string
	)

	cmd := &cobra.Command{
		Use:   "gridlens-proxy",
		Short: "GridLens SQL proxy - read-only query gateway for SQL sources",
		Long: `gridlens-proxy serves the query endpoint the sqlproxy source type talks
to. Database credentials stay on the proxy host; clients only hold a
connection ID and may only run read-only statements.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Proxy.Addr
			}
			return run(cmd.Context(), cfg, addr)
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default: ./gridlens.yaml)")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: from config)")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, addr string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))

	srv := proxy.NewServer(logger)
	defer func() { _ = srv.Close() }()

	for id, path := range cfg.Proxy.Connections {
		if err := srv.RegisterSQLite(id, path); err != nil {
			return err
		}
		logger.Info("registered connection", slog.String("id", id), slog.String("path", path))
	}
	if len(cfg.Proxy.Connections) == 0 {
		logger.Warn("no connections configured; every query will be rejected")
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("proxy listening", slog.String("addr", addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
