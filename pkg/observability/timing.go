package observability

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Command outcomes recorded on MetricCommandTotal and MetricCommandDuration.
const (
	OutcomeOK        = "ok"
	OutcomeAbandoned = "abandoned"
)

// ErrorClassifier names the kind of a failed command, e.g. "not_ready".
type ErrorClassifier func(error) string

// TrackCommand runs fn and records how the command settled. A command whose
// caller gave up is "abandoned"; other failures are labelled by classify, or
// "error" when classify is nil. Nil logger and metrics are skipped.
func TrackCommand[R any](ctx context.Context, logger *slog.Logger, metrics Metrics, command string, classify ErrorClassifier, fn func() (R, error)) (R, error) {
	start := time.Now()
	v, err := fn()
	elapsed := time.Since(start)

	outcome := outcomeOf(ctx, err, classify)
	if metrics != nil {
		tags := []Tag{T("command", command), T("outcome", outcome)}
		metrics.Counter(MetricCommandTotal, 1, tags...)
		metrics.Timing(MetricCommandDuration, elapsed, tags...)
	}
	if logger != nil {
		attrs := []slog.Attr{
			slog.String("op", command),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
		}
		switch outcome {
		case OutcomeOK:
			logger.LogAttrs(ctx, slog.LevelDebug, "command settled", attrs...)
		case OutcomeAbandoned:
			logger.LogAttrs(ctx, slog.LevelInfo, "command abandoned by caller", attrs...)
		default:
			attrs = append(attrs, slog.String("kind", outcome), slog.String("error", err.Error()))
			logger.LogAttrs(ctx, slog.LevelWarn, "command failed", attrs...)
		}
	}
	return v, err
}

func outcomeOf(ctx context.Context, err error, classify ErrorClassifier) string {
	switch {
	case err == nil:
		return OutcomeOK
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return OutcomeAbandoned
	case classify != nil:
		return classify(err)
	default:
		return "error"
	}
}
