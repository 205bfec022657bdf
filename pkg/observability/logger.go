// Package observability provides structured logging, metrics, health checks
// and command correlation for the bridge.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// ServiceName tags every record the bridge logs.
const ServiceName = "nativebridge"

// LogConfig configures the logger.
type LogConfig struct {
	// Level is debug, info, warn or error. Anything else means info.
	Level string
	// JSON selects the JSON handler instead of text.
	JSON bool
	// Output defaults to os.Stderr.
	Output    io.Writer
	AddSource bool
	Version   string
}

// LogConfigFor derives the logger settings from the loaded configuration.
// Production logs JSON with source locations to stdout; a non-empty format
// overrides the handler either way.
func LogConfigFor(appEnv, level, format, version string) LogConfig {
	cfg := LogConfig{Level: level, Output: os.Stderr, Version: version}
	if appEnv == "production" {
		cfg.JSON = true
		cfg.AddSource = true
		cfg.Output = os.Stdout
	}
	switch format {
	case "json":
		cfg.JSON = true
	case "text":
		cfg.JSON = false
	}
	return cfg
}

// LoggerFromEnv builds a logger before the configuration is loaded, so that
// configuration errors are logged in the right format.
func LoggerFromEnv() *slog.Logger {
	return NewLogger(LogConfigFor(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Getenv("BRIDGE_VERSION")))
}

// NewLogger creates a structured logger that tags records with the service
// and with the Command carried by the logging context.
func NewLogger(cfg LogConfig) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	attrs := []slog.Attr{slog.String("service", ServiceName)}
	if cfg.Version != "" {
		attrs = append(attrs, slog.String("version", cfg.Version))
	}
	return slog.New(commandHandler{handler.WithAttrs(attrs)})
}

// commandHandler adds the context's Command to each record.
type commandHandler struct {
	slog.Handler
}

func (h commandHandler) Handle(ctx context.Context, r slog.Record) error {
	if cmd, ok := CommandFrom(ctx); ok {
		r.AddAttrs(cmd.attrs()...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h commandHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return commandHandler{h.Handler.WithAttrs(attrs)}
}

func (h commandHandler) WithGroup(name string) slog.Handler {
	return commandHandler{h.Handler.WithGroup(name)}
}
