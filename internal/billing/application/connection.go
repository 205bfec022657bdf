package application

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/nativebridge/internal/billing/domain"
	sharedDomain "github.com/felixgeelhaar/nativebridge/internal/shared/domain"
	"github.com/felixgeelhaar/nativebridge/internal/shared/runtime"
)

// ConnectResult acknowledges a ready billing client.
type ConnectResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// StateChangeFunc observes connection transitions. It runs on the loop.
type StateChangeFunc func(from, to domain.ConnectionState)

// Connection is the billing client's lifecycle state machine. Every method
// runs on the loop.
type Connection struct {
	loop     *runtime.Loop
	client   domain.Client
	logger   *slog.Logger
	onChange StateChangeFunc

	state     domain.ConnectionState
	lastError string
	// epoch invalidates handshake results that arrive after a disconnect.
	epoch   uint64
	waiters []*runtime.Request[ConnectResult]
}

// NewConnection creates a disconnected state machine.
func NewConnection(loop *runtime.Loop, client domain.Client, logger *slog.Logger, onChange StateChangeFunc) *Connection {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connection{
		loop:     loop,
		client:   client,
		logger:   logger,
		onChange: onChange,
		state:    domain.StateDisconnected,
	}
}

// State returns the current state.
func (c *Connection) State() domain.ConnectionState {
	return c.state
}

// LastError returns the message of the last failed handshake.
func (c *Connection) LastError() string {
	return c.lastError
}

// Require fails with NotReadyError unless the connection is ready.
func (c *Connection) Require(op string) error {
	if !c.state.IsReady() {
		return sharedDomain.NotReadyError(op)
	}
	return nil
}

// Connect resolves req once the client is ready. Calls made while a handshake
// is in flight join it instead of starting another.
func (c *Connection) Connect(req *runtime.Request[ConnectResult]) {
	switch c.state {
	case domain.StateReady:
		req.Resolve(ConnectResult{Success: true, Message: "Billing client ready"})
		return
	case domain.StateConnecting:
		c.waiters = append(c.waiters, req)
		return
	}

	c.epoch++
	epoch := c.epoch
	c.waiters = append(c.waiters, req)
	c.transition(domain.StateConnecting)

	runtime.Async(c.loop, func(ctx context.Context) (domain.BillingResult, error) {
		return c.client.StartConnection(ctx), nil
	}, func(result domain.BillingResult, err error) {
		if epoch != c.epoch {
			c.logger.Debug("ignoring stale billing setup result", "code", result.Code)
			return
		}
		c.finishHandshake(result, err)
	})
}

func (c *Connection) finishHandshake(result domain.BillingResult, err error) {
	waiters := c.waiters
	c.waiters = nil

	if err == nil && result.OK() {
		c.lastError = ""
		c.transition(domain.StateReady)
		for _, w := range waiters {
			w.Resolve(ConnectResult{Success: true, Message: "Billing client ready"})
		}
		return
	}

	message := result.DebugMessage
	if err != nil {
		message = err.Error()
	}
	c.lastError = message
	c.transition(domain.StateFailed)
	c.logger.Warn("billing setup failed", "code", result.Code, "error", message)
	for _, w := range waiters {
		w.Reject(sharedDomain.ProviderError("connect", message))
	}
}

// Disconnect releases the client. Calling it while disconnected does nothing.
func (c *Connection) Disconnect() {
	if c.state == domain.StateDisconnected {
		return
	}

	c.epoch++
	waiters := c.waiters
	c.waiters = nil
	for _, w := range waiters {
		w.Reject(sharedDomain.ProviderError("connect", "billing connection closed before setup completed"))
	}

	c.endConnection()
	c.transition(domain.StateDisconnected)
}

// ServiceDisconnected handles the provider's unsolicited disconnect signal.
// Pending requests are not failed; only later readiness checks observe it.
// A handshake in flight keeps its epoch: the signal carries no error for its
// waiters, so the handshake's own result still settles them and the state.
func (c *Connection) ServiceDisconnected() {
	if c.state == domain.StateDisconnected {
		return
	}
	c.logger.Warn("billing service disconnected", "state", c.state)
	c.transition(domain.StateDisconnected)
}

func (c *Connection) endConnection() {
	defer func() {
		if p := recover(); p != nil {
			c.logger.Error("billing client panicked on end connection", "panic", p)
		}
	}()
	c.client.EndConnection()
}

func (c *Connection) transition(to domain.ConnectionState) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	c.logger.Info("billing connection state changed", "from", from, "to", to)
	if c.onChange != nil {
		c.onChange(from, to)
	}
}
