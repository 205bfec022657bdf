package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthRegistry_Report(t *testing.T) {
	tests := []struct {
		name     string
		billing  error
		sink     error
		want     HealthStatus
		messages map[string]string
	}{
		{
			name:     "all ready",
			want:     HealthStatusHealthy,
			messages: map[string]string{"billing": "billing ready", "nats": "nats ready"},
		},
		{
			name:     "optional sink down degrades",
			sink:     errors.New("no servers available"),
			want:     HealthStatusDegraded,
			messages: map[string]string{"nats": "nats unreachable: no servers available"},
		},
		{
			name:     "billing not ready wins",
			billing:  errors.New("connecting"),
			sink:     errors.New("closed"),
			want:     HealthStatusUnhealthy,
			messages: map[string]string{"billing": "billing not ready: connecting"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewHealthRegistry()
			r.Require("billing", func(context.Context) error { return tt.billing })
			r.Optional("nats", func(context.Context) error { return tt.sink })

			report := r.Report(context.Background())
			assert.Equal(t, tt.want, report.Status)
			assert.Equal(t, []string{"billing", "nats"}, report.Names())
			assert.True(t, report.Checks["billing"].Critical)
			assert.False(t, report.Checks["nats"].Critical)
			for name, msg := range tt.messages {
				assert.Equal(t, msg, report.Checks[name].Message)
			}
		})
	}
}

func TestHealthRegistry_EmptyIsHealthy(t *testing.T) {
	report := NewHealthRegistry().Report(context.Background())
	assert.Equal(t, HealthStatusHealthy, report.Status)
	assert.Empty(t, report.Checks)
}

func TestHealthRegistry_ChecksAreBounded(t *testing.T) {
	r := NewHealthRegistry()
	r.Optional("redis", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	report := r.Report(ctx)
	require.Contains(t, report.Checks, "redis")
	assert.Equal(t, HealthStatusDegraded, report.Status)
	assert.Contains(t, report.Checks["redis"].Message, "deadline exceeded")
}
