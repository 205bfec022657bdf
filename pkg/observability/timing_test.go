package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNotReady = errors.New("billing service not ready")

func classifyTest(err error) string {
	if errors.Is(err, errNotReady) {
		return "not_ready"
	}
	return "provider"
}

func TestTrackCommand_Outcomes(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name     string
		ctx      context.Context
		err      error
		classify ErrorClassifier
		outcome  string
		logged   string
	}{
		{"success", context.Background(), nil, classifyTest, OutcomeOK, "command settled"},
		{"classified failure", context.Background(), errNotReady, classifyTest, "not_ready", "command failed"},
		{"unclassified failure", context.Background(), errors.New("boom"), nil, "error", "command failed"},
		{"caller gave up", cancelled, context.Canceled, classifyTest, OutcomeAbandoned, "command abandoned by caller"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(LogConfig{Level: "debug", JSON: true, Output: &buf})
			metrics := NewInMemoryMetrics()

			got, err := TrackCommand(tt.ctx, logger, metrics, "billing.status", tt.classify, func() (int, error) {
				return 7, tt.err
			})
			assert.Equal(t, 7, got)
			assert.Equal(t, tt.err, err)

			tags := []Tag{T("command", "billing.status"), T("outcome", tt.outcome)}
			assert.Equal(t, int64(1), metrics.GetCounter(MetricCommandTotal, tags...))
			assert.Len(t, metrics.GetTimings(MetricCommandDuration, tags...), 1)

			entries := decodeLines(t, &buf)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.logged, entries[0]["msg"])
			assert.Equal(t, "billing.status", entries[0]["op"])
			if tt.outcome != OutcomeOK && tt.outcome != OutcomeAbandoned {
				assert.Equal(t, tt.outcome, entries[0]["kind"])
			}
		})
	}
}

func TestTrackCommand_CarriesCommandContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{JSON: true, Output: &buf})
	ctx := WithCommand(context.Background(), Command{Name: "billing.purchase", RequestID: "req-1", Surface: SurfaceMCP})

	_, err := TrackCommand(ctx, logger, nil, "billing.purchase", nil, func() (struct{}, error) {
		return struct{}{}, errors.New("Item is already owned.")
	})
	require.Error(t, err)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0]["request_id"])
	assert.Equal(t, "Item is already owned.", entries[0]["error"])
}
