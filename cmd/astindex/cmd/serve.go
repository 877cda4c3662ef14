package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/weftcode/astindex/internal/queryserver"
	"github.com/weftcode/astindex/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	var (
		transport      string
		address        string
		metricsAddress string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the query server over a long-lived JSON-RPC connection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			env, err := openEnvironment(ctx, "")
			if err != nil {
				return err
			}
			defer env.Close()

			cfg := queryserver.Config{
				Transport:             firstNonEmpty(transport, env.Config.Server.Transport),
				Address:               firstNonEmpty(address, env.Config.Server.Address),
				MaxConcurrentRequests: env.Config.Server.MaxConcurrentRequests,
				RequestQueueSize:      env.Config.Server.RequestQueueSize,
				RequestTimeout:        env.Config.ServerRequestTimeout(),
				AuthToken:             env.Config.Server.AuthToken,
				RateLimitPerSecond:    env.Config.Server.RateLimitPerSecond,
				RateLimitBurst:        env.Config.Server.RateLimitBurst,
			}
			if cfg.Address == "" {
				cfg.Address = defaultSocketPath(env.Layout.Root)
			}

			server := queryserver.New(cfg, newIndexHandler(env))

			runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			metricsAddr := firstNonEmpty(metricsAddress, env.Config.Server.MetricsAddress)
			if metricsAddr != "" {
				metricsServer := telemetry.NewServer(metricsAddr, env.Metrics)
				go func() {
					if err := metricsServer.ListenAndServe(); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "metrics server: %v\n", err)
					}
				}()
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					_ = metricsServer.Shutdown(shutdownCtx)
				}()
				fmt.Fprintf(cmd.ErrOrStderr(), "serving metrics on %s/metrics\n", metricsAddr)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "serving on %s %s\n", cfg.Transport, cfg.Address)
			if err := server.ListenAndServe(runCtx); err != nil && runCtx.Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "unix or tcp (default: config server.transport)")
	cmd.Flags().StringVar(&address, "address", "", "socket path or host:port (default: config server.address)")
	cmd.Flags().StringVar(&metricsAddress, "metrics-address", "", "host:port to serve Prometheus /metrics on (default: config server.metrics_address; empty disables)")

	return cmd
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func defaultSocketPath(dataDir string) string {
	return dataDir + "/query.sock"
}
