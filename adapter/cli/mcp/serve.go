package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/felixgeelhaar/nativebridge/adapter/cli"
	"github.com/felixgeelhaar/nativebridge/internal/app"
	mcpinternal "github.com/felixgeelhaar/nativebridge/internal/mcp"
	"github.com/felixgeelhaar/nativebridge/pkg/config"
	"github.com/felixgeelhaar/nativebridge/pkg/observability"
	"github.com/spf13/cobra"
)

var connectOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the MCP server. When METRICS_ADDR or GRPC_HEALTH_ADDR are set, a
Prometheus endpoint and a gRPC health service are started alongside it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		logger := newServerLogger(cmd.ErrOrStderr(), cfg)
		metrics := observability.NewPrometheusMetrics()

		container, err := app.NewContainer(ctx, cfg, logger, app.WithMetrics(metrics))
		if err != nil {
			return err
		}
		defer container.Close()

		if err := container.StartHealthServers(ctx, metrics.Handler()); err != nil {
			return err
		}

		if connectOnStart {
			if _, err := container.Billing.Connect(ctx); err != nil {
				logger.Warn("billing connect failed; hosts can retry with billing.connect", "error", err)
			}
		}

		err = mcpinternal.Serve(ctx, cfg, cli.NewAppFromContainer(container), logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func newServerLogger(out io.Writer, cfg *config.Config) *slog.Logger {
	logCfg := observability.LogConfigFor(cfg.AppEnv, cfg.LogLevel, cfg.LogFormat, cli.Version)
	logCfg.Output = out
	return observability.NewLogger(logCfg)
}

func init() {
	serveCmd.Flags().BoolVar(&connectOnStart, "connect", true, "connect billing before accepting requests")
}
