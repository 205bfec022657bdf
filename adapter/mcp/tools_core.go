package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/nativebridge/adapter/cli"
	"github.com/felixgeelhaar/nativebridge/internal/app"
	"github.com/felixgeelhaar/nativebridge/pkg/observability"
)

type coreTools struct {
	app *cli.App
}

func (t coreTools) health(ctx context.Context, _ struct{}) (observability.HealthReport, error) {
	if t.app.Health == nil {
		return observability.HealthReport{}, errors.New("health checks not configured")
	}
	return t.app.Health.Report(ctx), nil
}

func (t coreTools) diagnostics(ctx context.Context, _ struct{}) (app.Diagnostics, error) {
	if t.app.Diagnostics == nil {
		return app.Diagnostics{}, errors.New("diagnostics not configured")
	}
	return t.app.Diagnostics(ctx)
}

func registerCoreTools(srv *mcp.Server, deps ToolDependencies) error {
	tools := coreTools{app: deps.App}

	srv.Tool("bridge.health").
		Description("Run the bridge health checks").
		Handler(tools.health)

	srv.Tool("bridge.diagnostics").
		Description("Show the billing state, in-flight requests and keep-alive count").
		Handler(tools.diagnostics)

	srv.Tool("bridge.version").
		Description("Get version information").
		Handler(func(ctx context.Context, input struct{}) (map[string]string, error) {
			return map[string]string{
				"version":   cli.Version,
				"commit":    cli.Commit,
				"buildDate": cli.BuildDate,
			}, nil
		})

	return nil
}
