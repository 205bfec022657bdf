package application

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/nativebridge/internal/billing/domain"
	sharedDomain "github.com/felixgeelhaar/nativebridge/internal/shared/domain"
	"github.com/felixgeelhaar/nativebridge/internal/shared/runtime"
	"github.com/felixgeelhaar/nativebridge/pkg/observability"
)

const defaultJournalSize = 50

// Status reports the connection and subscriber state.
type Status struct {
	State       domain.ConnectionState `json:"state"`
	Ready       bool                   `json:"ready"`
	LastError   string                 `json:"lastError,omitempty"`
	Subscribers int                    `json:"subscribers"`
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m observability.Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithJournalSize sets how many recent events are kept.
func WithJournalSize(n int) Option {
	return func(s *Service) {
		s.journalSize = n
	}
}

// WithStateObserver registers fn to be told about connection state changes.
// fn runs on the loop and must not block.
func WithStateObserver(fn func(from, to domain.ConnectionState)) Option {
	return func(s *Service) {
		s.observers = append(s.observers, fn)
	}
}

// Service exposes the billing command surface. Commands run on the loop and
// callers block on the outcome.
type Service struct {
	loop    *runtime.Loop
	client  domain.Client
	logger  *slog.Logger
	metrics observability.Metrics

	journalSize int
	observers   []func(from, to domain.ConnectionState)

	// owned by the loop
	conn       *Connection
	dispatcher *Dispatcher
	journal    *Journal
}

// NewService wires the billing client to the loop and installs its listener.
func NewService(loop *runtime.Loop, client domain.Client, opts ...Option) *Service {
	s := &Service{
		loop:        loop,
		client:      client,
		logger:      slog.Default(),
		metrics:     observability.NoopMetrics{},
		journalSize: defaultJournalSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("component", "billing")
	s.conn = NewConnection(loop, client, s.logger, s.recordTransition)
	s.dispatcher = NewDispatcher(s.logger)
	s.dispatcher.onPanic = func(Subscriber, any) {
		s.metrics.Counter(observability.MetricSubscriberPanics, 1)
	}
	s.journal = NewJournal(s.journalSize)

	client.SetListener(&listener{s: s})
	return s
}

// Connect starts the billing client, or joins a handshake already running.
func (s *Service) Connect(ctx context.Context) (ConnectResult, error) {
	return command(ctx, s, "connect", func(req *runtime.Request[ConnectResult]) {
		s.metrics.Counter(observability.MetricConnectionAttempts, 1)
		s.conn.Connect(req)
	})
}

// Disconnect releases the billing client.
func (s *Service) Disconnect(ctx context.Context) error {
	_, err := command(ctx, s, "disconnect", func(req *runtime.Request[struct{}]) {
		s.conn.Disconnect()
		req.Resolve(struct{}{})
	})
	return err
}

// Status reports the connection state.
func (s *Service) Status(ctx context.Context) (Status, error) {
	var st Status
	err := s.loop.Do(ctx, func() {
		st = Status{
			State:       s.conn.State(),
			Ready:       s.conn.State().IsReady(),
			LastError:   s.conn.LastError(),
			Subscribers: s.dispatcher.Len(),
		}
	})
	return st, err
}

// Subscribe registers sub for purchase events.
func (s *Service) Subscribe(ctx context.Context, sub Subscriber) error {
	var regErr error
	err := s.loop.Do(ctx, func() {
		regErr = s.dispatcher.Register(sub)
		s.metrics.Gauge(observability.MetricSubscribers, float64(s.dispatcher.Len()))
	})
	if err != nil {
		return err
	}
	return regErr
}

// Unsubscribe removes sub. Unknown subscribers are ignored.
func (s *Service) Unsubscribe(ctx context.Context, sub Subscriber) error {
	return s.loop.Do(ctx, func() {
		s.dispatcher.Unregister(sub)
		s.metrics.Gauge(observability.MetricSubscribers, float64(s.dispatcher.Len()))
	})
}

// RecentEvents returns up to limit recently dispatched events, oldest first.
func (s *Service) RecentEvents(ctx context.Context, limit int) ([]JournalEntry, error) {
	var entries []JournalEntry
	err := s.loop.Do(ctx, func() {
		entries = s.journal.Recent(limit)
	})
	return entries, err
}

// Shutdown drops every subscriber and disconnects the client.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.loop.Do(ctx, func() {
		s.dispatcher.Clear()
		s.conn.Disconnect()
	})
}

func (s *Service) handleUpdate(result domain.BillingResult, purchases []domain.Entitlement) {
	for _, event := range domain.ClassifyUpdate(result, purchases) {
		s.journal.Record(event)
		s.dispatcher.Deliver(event)
		s.metrics.Counter(observability.MetricEventsDispatched, 1, observability.T("kind", string(event.Kind())))
	}
}

func (s *Service) recordTransition(from, to domain.ConnectionState) {
	s.metrics.Gauge(observability.MetricConnectionState, 0, observability.T("state", string(from)))
	s.metrics.Gauge(observability.MetricConnectionState, 1, observability.T("state", string(to)))
	for _, fn := range s.observers {
		fn(from, to)
	}
}

// listener marshals provider callbacks onto the loop.
type listener struct {
	s *Service
}

func (l *listener) OnPurchasesUpdated(result domain.BillingResult, purchases []domain.Entitlement) {
	var copied []domain.Entitlement
	if purchases != nil {
		copied = make([]domain.Entitlement, len(purchases))
		copy(copied, purchases)
	}
	l.s.loop.Post(func() { l.s.handleUpdate(result, copied) })
}

func (l *listener) OnServiceDisconnected() {
	l.s.metrics.Counter(observability.MetricServiceDisconnections, 1)
	l.s.loop.Post(l.s.conn.ServiceDisconnected)
}

func command[T any](ctx context.Context, s *Service, op string, fn func(req *runtime.Request[T])) (T, error) {
	return observability.TrackCommand(ctx, s.logger, s.metrics, "billing."+op, sharedDomain.KindName, func() (T, error) {
		return runtime.Submit(s.loop, op, fn).Await(ctx)
	})
}
