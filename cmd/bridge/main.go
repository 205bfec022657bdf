package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/nativebridge/adapter/cli"
	cliBilling "github.com/felixgeelhaar/nativebridge/adapter/cli/billing"
	"github.com/felixgeelhaar/nativebridge/adapter/cli/mcp"
	cliPush "github.com/felixgeelhaar/nativebridge/adapter/cli/push"
	"github.com/felixgeelhaar/nativebridge/internal/app"
	"github.com/felixgeelhaar/nativebridge/pkg/config"
	"github.com/felixgeelhaar/nativebridge/pkg/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	logger := observability.LoggerFromEnv()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}
	logger = observability.NewLogger(observability.LogConfigFor(cfg.AppEnv, cfg.LogLevel, cfg.LogFormat, cli.Version))
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize bridge", "error", err)
		return 1
	}
	defer container.Close()

	cli.SetApp(cli.NewAppFromContainer(container))

	// Register commands
	cli.AddCommand(cliBilling.Cmd)
	cli.AddCommand(cliPush.Cmd)
	cli.AddCommand(mcp.Cmd)

	if err := cli.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
