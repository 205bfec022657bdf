package observability

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Surfaces a command can arrive through.
const (
	SurfaceCLI = "cli"
	SurfaceMCP = "mcp"
)

// Command identifies the bridge command a context is serving. Loggers built by
// NewLogger add it to every record logged with that context.
type Command struct {
	Name      string `json:"command"`
	RequestID string `json:"request_id"`
	Surface   string `json:"surface,omitempty"`
}

type commandKey struct{}

// WithCommand attaches cmd to ctx. A missing request id is generated.
func WithCommand(ctx context.Context, cmd Command) context.Context {
	if cmd.RequestID == "" {
		cmd.RequestID = uuid.NewString()
	}
	return context.WithValue(ctx, commandKey{}, cmd)
}

// CommandFrom returns the command attached to ctx.
func CommandFrom(ctx context.Context) (Command, bool) {
	if ctx == nil {
		return Command{}, false
	}
	cmd, ok := ctx.Value(commandKey{}).(Command)
	return cmd, ok
}

func (c Command) attrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("command", c.Name),
		slog.String("request_id", c.RequestID),
	}
	if c.Surface != "" {
		attrs = append(attrs, slog.String("surface", c.Surface))
	}
	return attrs
}
