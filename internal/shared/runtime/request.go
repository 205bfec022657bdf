package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/nativebridge/internal/shared/domain"
	"github.com/google/uuid"
)

// Request correlates a caller's command with its eventual outcome. Apart from
// Await and Token, its methods must be called on the loop.
type Request[T any] struct {
	loop    *Loop
	token   uuid.UUID
	command string
	future  *Future[T]
	holding bool
}

// Submit registers a pending request for command and runs fn with it on the
// loop. A panic inside fn rejects the request with a ProviderError.
func Submit[T any](l *Loop, command string, fn func(req *Request[T])) *Request[T] {
	req := &Request[T]{
		loop:    l,
		token:   uuid.New(),
		command: command,
		future:  NewFuture[T](),
	}
	posted := l.Post(func() {
		l.track(req.token, command, req.Reject)
		req.Guard(func() { fn(req) })
	})
	if !posted {
		req.future.Reject(domain.ProviderError(command, "bridge is closed"))
	}
	return req
}

// Token identifies the request.
func (r *Request[T]) Token() uuid.UUID { return r.token }

// Command is the name of the originating command.
func (r *Request[T]) Command() string { return r.command }

// Settled reports whether the request has been resolved or rejected.
func (r *Request[T]) Settled() bool { return r.future.Settled() }

// Await blocks until the request settles or ctx ends.
func (r *Request[T]) Await(ctx context.Context) (T, error) {
	return r.future.Await(ctx)
}

// Resolve completes the request. Later settlements are ignored.
func (r *Request[T]) Resolve(v T) {
	if r.future.Settled() {
		return
	}
	// Release before settling so a caller woken by Await sees it released.
	r.finish()
	r.future.Resolve(v)
}

// Reject fails the request. Later settlements are ignored.
func (r *Request[T]) Reject(err error) {
	if r.future.Settled() {
		return
	}
	r.finish()
	r.future.Reject(err)
}

// KeepAlive signals the host that the result will arrive after the current
// task returns. The signal is cleared exactly once, when the request settles.
func (r *Request[T]) KeepAlive() {
	if r.holding || r.future.Settled() {
		return
	}
	r.holding = true
	r.loop.setKeepAlive(r.token, true)
}

// Guard runs fn and turns a panic into a ProviderError rejection.
func (r *Request[T]) Guard(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.Reject(domain.ProviderError(r.command, panicMessage(p)))
		}
	}()
	fn()
}

func (r *Request[T]) finish() {
	if r.holding {
		r.holding = false
		r.loop.setKeepAlive(r.token, false)
	}
	r.loop.untrack(r.token)
}

// PanicError is the error Async reports when an external call panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return panicMessage(e.Value)
}

// IsPanic reports whether err came from a recovered panic.
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}

// Async runs call off the loop and posts then(value, err) back onto it. A panic
// in call is reported as a *PanicError.
func Async[T any](l *Loop, call func(ctx context.Context) (T, error), then func(T, error)) {
	ctx := l.Context()
	go func() {
		var (
			value T
			err   error
		)
		func() {
			defer func() {
				if p := recover(); p != nil {
					err = &PanicError{Value: p}
				}
			}()
			value, err = call(ctx)
		}()
		l.Post(func() { then(value, err) })
	}()
}

// Then runs call off the loop on behalf of req and continues with then on the
// loop. A failed call rejects req: bridge errors pass through unchanged and
// anything else, panics included, becomes a ProviderError. then is skipped once
// req has settled and is guarded like the body passed to Submit.
func Then[T, R any](req *Request[R], call func(ctx context.Context) (T, error), then func(T)) {
	Async(req.loop, call, func(v T, err error) {
		if req.Settled() {
			return
		}
		if err != nil {
			req.Reject(asBridgeError(req.command, err))
			return
		}
		req.Guard(func() { then(v) })
	})
}

func asBridgeError(op string, err error) error {
	var be *domain.BridgeError
	if errors.As(err, &be) {
		return err
	}
	return domain.ProviderError(op, err.Error())
}

func panicMessage(p any) string {
	if err, ok := p.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(p)
}
