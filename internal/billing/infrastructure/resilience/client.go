// Package resilience guards the billing provider with a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/nativebridge/internal/billing/domain"
	"github.com/sony/gobreaker/v2"
)

var errTransient = errors.New("transient billing failure")

// Config configures the breaker.
type Config struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultConfig returns breaker defaults.
func DefaultConfig() Config {
	return Config{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Client decorates a billing client so that repeated transient failures stop
// reaching the provider until it has had time to recover.
type Client struct {
	inner   domain.Client
	breaker *gobreaker.CircuitBreaker[domain.BillingResult]
	logger  *slog.Logger
}

var _ domain.Client = (*Client)(nil)

// NewClient wraps inner.
func NewClient(inner domain.Client, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	settings := gobreaker.Settings{
		Name:        "billing",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
	return &Client{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[domain.BillingResult](settings),
		logger:  logger,
	}
}

// State returns the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

func (c *Client) SetListener(l domain.Listener) {
	c.inner.SetListener(l)
}

func (c *Client) EndConnection() {
	c.inner.EndConnection()
}

func (c *Client) StartConnection(ctx context.Context) domain.BillingResult {
	return c.execute(func() domain.BillingResult {
		return c.inner.StartConnection(ctx)
	})
}

func (c *Client) QueryProducts(ctx context.Context, productIDs []string) (domain.BillingResult, []domain.Product) {
	var products []domain.Product
	result := c.execute(func() domain.BillingResult {
		var r domain.BillingResult
		r, products = c.inner.QueryProducts(ctx, productIDs)
		return r
	})
	return result, products
}

func (c *Client) QueryPurchases(ctx context.Context) (domain.BillingResult, []domain.Entitlement) {
	var purchases []domain.Entitlement
	result := c.execute(func() domain.BillingResult {
		var r domain.BillingResult
		r, purchases = c.inner.QueryPurchases(ctx)
		return r
	})
	return result, purchases
}

func (c *Client) LaunchBillingFlow(ctx context.Context, params domain.FlowParams) domain.BillingResult {
	return c.execute(func() domain.BillingResult {
		return c.inner.LaunchBillingFlow(ctx, params)
	})
}

func (c *Client) execute(call func() domain.BillingResult) domain.BillingResult {
	result, err := c.breaker.Execute(func() (domain.BillingResult, error) {
		r := call()
		if isTransient(r.Code) {
			return r, errTransient
		}
		return r, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Warn("billing call rejected by circuit breaker", "state", c.breaker.State().String())
		return domain.Result(domain.ResponseServiceUnavailable, "Billing service temporarily unavailable")
	}
	return result
}

// isTransient reports codes that indicate the provider itself is unhealthy.
// Caller mistakes and user cancellations do not count against it.
func isTransient(code domain.ResponseCode) bool {
	switch code {
	case domain.ResponseServiceUnavailable, domain.ResponseServiceDisconnected, domain.ResponseError:
		return true
	default:
		return false
	}
}
