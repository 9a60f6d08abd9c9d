// recon-server serves the reconstruction engine over HTTP.
//
// Usage:
//
//	recon-server --config derivrecon.yaml
//
// See internal/server for the routes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/njchilds90/derivrecon/internal/config"
	"github.com/njchilds90/derivrecon/internal/server"
)

var version = "dev"

func main() {
	var configPath, addr string
	cmd := &cobra.Command{
		Use:           "recon-server",
		Short:         "HTTP service reconstructing f from f' or f''",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Serve(ctx, cfg, version, os.Stderr)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML config (default derivrecon.yaml if present)")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides the config")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "recon-server:", err)
		os.Exit(1)
	}
}
