// Package apptest builds sandbox-backed containers for adapter tests.
package apptest

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/felixgeelhaar/nativebridge/internal/app"
	"github.com/felixgeelhaar/nativebridge/pkg/config"
	"github.com/stretchr/testify/require"
)

// Config returns a sandbox configuration with millisecond delays. The push
// identity becomes available on the second resolver attempt.
func Config() *config.Config {
	return &config.Config{
		AppEnv:                    "test",
		BillingProvider:           config.ProviderSandbox,
		SandboxSetupDelay:         time.Millisecond,
		SandboxFlowDelay:          time.Millisecond,
		PushProvider:              config.ProviderSandbox,
		PushInstallationID:        "install-test",
		SandboxIdentityReadyAfter: 1,
		IdentifierMaxAttempts:     10,
		IdentifierRetryDelay:      time.Millisecond,
		EventSink:                 config.SinkNone,
		EventBuffer:               16,
	}
}

// NewContainer creates a container from Config after applying mutate and
// closes it when the test ends.
func NewContainer(t *testing.T, mutate ...func(*config.Config)) *app.Container {
	t.Helper()
	cfg := Config()
	for _, fn := range mutate {
		fn(cfg)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := app.NewContainer(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}
