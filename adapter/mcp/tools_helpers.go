package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sharedDomain "github.com/felixgeelhaar/nativebridge/internal/shared/domain"
	"github.com/felixgeelhaar/nativebridge/internal/shared/infrastructure/ratelimit"
	"github.com/felixgeelhaar/nativebridge/pkg/observability"
)

// limited tags the call context with the tool as its command and rejects
// calls once the tool's bucket is empty. A nil limiter never rejects.
func limited[I, O any](limiter *ratelimit.Limiter, logger *slog.Logger, tool string, fn func(context.Context, I) (O, error)) func(context.Context, I) (O, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, input I) (O, error) {
		ctx = observability.WithCommand(ctx, observability.Command{Name: tool, Surface: observability.SurfaceMCP})
		if limiter != nil && !limiter.Allow(tool, time.Now()) {
			var zero O
			logger.WarnContext(ctx, "tool call rate limited")
			return zero, fmt.Errorf("rate limit exceeded for %s", tool)
		}
		return fn(ctx, input)
	}
}

// toolError prefixes err with its error kind so callers can tell a
// validation failure from a provider failure. errors.Is still matches.
func toolError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", sharedDomain.KindOf(err), err)
}

// result converts a service call into a tool result.
func result[T any](v T, err error) (T, error) {
	return v, toolError(err)
}
