// Package runtime provides the bridge's designated execution context.
//
// All bridge state (connection state, subscriber set, pending requests) is
// owned by a single Loop goroutine. Commands are posted onto the loop, external
// calls run off the loop through Async, and their outcomes are posted back
// before any state is touched. Code running on the loop therefore never needs
// locks for that state.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/nativebridge/internal/shared/domain"
	"github.com/google/uuid"
)

// Scheduler arms one-shot timers for delayed work.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// KeepAliveHook observes keep-alive transitions of pending requests.
type KeepAliveHook func(req PendingRequest, alive bool)

// PendingRequest is the loop's record of a command awaiting its result.
type PendingRequest struct {
	Token     uuid.UUID
	Command   string
	CreatedAt time.Time
	KeepAlive bool

	abandon func(error)
}

// Loop runs posted tasks one at a time, in submission order, on one goroutine.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
	stopped   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	scheduler Scheduler
	logger    *slog.Logger
	onKeep    KeepAliveHook

	// owned by the loop goroutine
	pending map[uuid.UUID]*PendingRequest
}

// Option configures a Loop.
type Option func(*Loop)

// WithScheduler replaces the timer source used by PostDelayed.
func WithScheduler(s Scheduler) Option {
	return func(l *Loop) {
		if s != nil {
			l.scheduler = s
		}
	}
}

// WithLogger sets the loop logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithKeepAliveHook registers a hook invoked on the loop whenever a request
// starts or stops holding its keep-alive signal.
func WithKeepAliveHook(hook KeepAliveHook) Option {
	return func(l *Loop) {
		l.onKeep = hook
	}
}

// NewLoop creates a loop. Call Start before expecting posted work to run.
func NewLoop(opts ...Option) *Loop {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		wake:      make(chan struct{}, 1),
		stopped:   make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		scheduler: systemScheduler{},
		logger:    slog.Default(),
		pending:   make(map[uuid.UUID]*PendingRequest),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start launches the loop goroutine. It is safe to call more than once.
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		go l.run()
	})
}

// Context is cancelled when the loop closes. External calls issued on behalf
// of the loop use it so teardown aborts them.
func (l *Loop) Context() context.Context {
	return l.ctx
}

// Post enqueues fn. It never blocks and reports false once the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

const (
	doQueued int32 = iota
	doRunning
	doAbandoned
)

// Do runs fn on the loop and waits for it to return. It must not be called
// from a task running on the loop. When Do returns an error fn has not run
// and never will.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var state atomic.Int32
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		if !state.CompareAndSwap(doQueued, doRunning) {
			return
		}
		fn()
	}) {
		return domain.ProviderError("loop", "bridge is closed")
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if state.CompareAndSwap(doQueued, doAbandoned) {
			return ctx.Err()
		}
		// fn already started; its effects stand.
		<-done
		return nil
	}
}

// PostDelayed enqueues fn after d. It is a scheduled re-check, not a sleep:
// the loop keeps serving other work while the timer is armed.
func (l *Loop) PostDelayed(d time.Duration, fn func()) (stop func() bool) {
	return l.scheduler.AfterFunc(d, func() {
		l.Post(fn)
	})
}

// Close stops accepting work, drains what is already queued, and rejects every
// request still pending. It must not be called from a task running on the loop.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		// Queued work still runs, so requests it creates are tracked and can be abandoned below.
		l.Start()

		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()

		select {
		case l.wake <- struct{}{}:
		default:
		}
		<-l.stopped
		l.cancel()

		for _, req := range l.pending {
			if req.abandon != nil {
				req.abandon(domain.ProviderError(req.Command, "bridge closed before "+req.Command+" completed"))
			}
		}
		l.logger.Debug("execution loop closed")
	})
}

// Pending returns a copy of the pending request table. Loop only.
func (l *Loop) Pending() []PendingRequest {
	out := make([]PendingRequest, 0, len(l.pending))
	for _, req := range l.pending {
		cp := *req
		cp.abandon = nil
		out = append(out, cp)
	}
	return out
}

func (l *Loop) run() {
	defer close(l.stopped)
	for {
		task, ok := l.next()
		if !ok {
			return
		}
		l.execute(task)
	}
}

func (l *Loop) next() (func(), bool) {
	for {
		l.mu.Lock()
		if len(l.queue) > 0 {
			task := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()
			return task, true
		}
		if l.closed {
			l.mu.Unlock()
			return nil, false
		}
		l.mu.Unlock()
		<-l.wake
	}
}

func (l *Loop) execute(task func()) {
	defer func() {
		if p := recover(); p != nil {
			l.logger.Error("execution loop task panicked", "panic", fmt.Sprint(p))
		}
	}()
	task()
}

func (l *Loop) track(token uuid.UUID, command string, abandon func(error)) {
	l.pending[token] = &PendingRequest{
		Token:     token,
		Command:   command,
		CreatedAt: time.Now(),
		abandon:   abandon,
	}
}

func (l *Loop) untrack(token uuid.UUID) {
	delete(l.pending, token)
}

func (l *Loop) setKeepAlive(token uuid.UUID, alive bool) {
	req, ok := l.pending[token]
	if !ok {
		return
	}
	req.KeepAlive = alive
	if l.onKeep != nil {
		cp := *req
		cp.abandon = nil
		l.onKeep(cp, alive)
	}
}
