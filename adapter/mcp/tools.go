package mcp

import (
	"errors"
	"log/slog"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/nativebridge/adapter/cli"
	"github.com/felixgeelhaar/nativebridge/internal/shared/infrastructure/ratelimit"
)

// ToolDependencies provides handlers and context for MCP tools.
type ToolDependencies struct {
	App *cli.App

	// Limiter throttles each tool independently. Nil disables limiting.
	Limiter *ratelimit.Limiter
	Logger  *slog.Logger
}

// RegisterCLITools registers MCP tools that mirror CLI functionality.
func RegisterCLITools(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return errors.New("server is required")
	}
	if deps.App == nil {
		return errors.New("app is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	if err := registerCoreTools(srv, deps); err != nil {
		return err
	}
	if err := registerBillingTools(srv, deps); err != nil {
		return err
	}
	if err := registerPushTools(srv, deps); err != nil {
		return err
	}

	return nil
}
