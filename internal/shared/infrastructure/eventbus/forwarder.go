package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/nativebridge/internal/shared/domain"
	"github.com/felixgeelhaar/nativebridge/pkg/observability"
)

const (
	defaultForwardBuffer  = 256
	defaultPublishTimeout = 5 * time.Second
)

// ForwarderConfig configures a Forwarder.
type ForwarderConfig struct {
	Buffer         int
	PublishTimeout time.Duration
	Source         string
}

// Forwarder publishes events to a broker from its own goroutine so that the
// caller never waits on the network. When the buffer is full the event is
// dropped and logged.
type Forwarder struct {
	publisher Publisher
	cfg       ForwarderConfig
	logger    *slog.Logger
	metrics   observability.Metrics

	mu      sync.Mutex
	closed  bool
	queue   chan *Envelope
	stopped chan struct{}
}

// NewForwarder starts a forwarder publishing through publisher.
func NewForwarder(publisher Publisher, cfg ForwarderConfig, logger *slog.Logger, metrics observability.Metrics) *Forwarder {
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultForwardBuffer
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	f := &Forwarder{
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With("component", "forwarder"),
		metrics:   metrics,
		queue:     make(chan *Envelope, cfg.Buffer),
		stopped:   make(chan struct{}),
	}
	go f.run()
	return f
}

// Forward enqueues event with payload. It reports false if the event was dropped.
func (f *Forwarder) Forward(event domain.DomainEvent, payload any) bool {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		f.logger.Error("failed to build envelope", "routing_key", event.RoutingKey(), "error", err)
		return false
	}
	if env.Metadata.Source == "" {
		env.Metadata.Source = f.cfg.Source
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	select {
	case f.queue <- env:
		return true
	default:
		f.logger.Warn("forward buffer full, dropping event",
			"routing_key", env.RoutingKey,
			"event_id", env.EventID,
		)
		f.metrics.Counter(observability.MetricEventsPublished, 1,
			observability.T("routing_key", env.RoutingKey),
			observability.T("status", "dropped"),
		)
		return false
	}
}

func (f *Forwarder) run() {
	defer close(f.stopped)
	for env := range f.queue {
		f.publish(env)
	}
}

func (f *Forwarder) publish(env *Envelope) {
	body, err := env.Marshal()
	if err != nil {
		f.logger.Error("failed to marshal envelope", "event_id", env.EventID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.cfg.PublishTimeout)
	defer cancel()

	status := "ok"
	if err := f.publisher.Publish(ctx, env.RoutingKey, body); err != nil {
		status = "error"
		f.logger.Error("failed to forward event",
			"routing_key", env.RoutingKey,
			"event_id", env.EventID,
			"error", err,
		)
	}
	f.metrics.Counter(observability.MetricEventsPublished, 1,
		observability.T("routing_key", env.RoutingKey),
		observability.T("status", status),
	)
}

// Close publishes what is queued, then closes the publisher.
func (f *Forwarder) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.queue)
	f.mu.Unlock()

	<-f.stopped
	return f.publisher.Close()
}
