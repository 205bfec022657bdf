package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	billingApp "github.com/felixgeelhaar/nativebridge/internal/billing/application"
	billingDomain "github.com/felixgeelhaar/nativebridge/internal/billing/domain"
	"github.com/felixgeelhaar/nativebridge/internal/billing/infrastructure/resilience"
	billingSandbox "github.com/felixgeelhaar/nativebridge/internal/billing/infrastructure/sandbox"
	pushApp "github.com/felixgeelhaar/nativebridge/internal/push/application"
	pushDomain "github.com/felixgeelhaar/nativebridge/internal/push/domain"
	"github.com/felixgeelhaar/nativebridge/internal/push/infrastructure/redisstore"
	pushSandbox "github.com/felixgeelhaar/nativebridge/internal/push/infrastructure/sandbox"
	"github.com/felixgeelhaar/nativebridge/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/nativebridge/internal/shared/runtime"
	"github.com/felixgeelhaar/nativebridge/pkg/config"
	"github.com/felixgeelhaar/nativebridge/pkg/observability"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 5 * time.Second

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics observability.Metrics
	Health  *observability.HealthRegistry

	// Execution context shared by every command
	Loop *runtime.Loop

	// Billing
	BillingClient  billingDomain.Client
	BillingSandbox *billingSandbox.Client
	Billing        *billingApp.Service

	// Push identity
	PushProvider pushDomain.Provider
	Push         *pushApp.Service

	// Redis
	RedisClient *redis.Client

	// Event forwarding
	EventPublisher eventbus.Publisher
	Forwarder      *eventbus.Forwarder
	forwardSub     billingApp.Subscriber

	// Health servers
	Readiness *ReadinessServer

	closeOnce sync.Once

	// owned by the loop
	keepAlive    int
	billingReady bool
}

// Option customizes a Container before its services are created.
type Option func(*Container, *[]runtime.Option)

// WithMetrics sets the metrics collector. Defaults to NoopMetrics.
func WithMetrics(m observability.Metrics) Option {
	return func(c *Container, _ *[]runtime.Option) {
		if m != nil {
			c.Metrics = m
		}
	}
}

// WithScheduler replaces the loop's timer source.
func WithScheduler(s runtime.Scheduler) Option {
	return func(_ *Container, opts *[]runtime.Option) {
		*opts = append(*opts, runtime.WithScheduler(s))
	}
}

// NewContainer wires the bridge from configuration.
//
// Optional infrastructure (Redis, brokers) falls back to in-process
// replacements in development and fails the container otherwise.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NoopMetrics{},
		Health:  observability.NewHealthRegistry(),
	}
	loopOpts := []runtime.Option{runtime.WithLogger(logger)}
	for _, opt := range opts {
		opt(c, &loopOpts)
	}
	loopOpts = append(loopOpts, runtime.WithKeepAliveHook(c.observeKeepAlive))

	c.Loop = runtime.NewLoop(loopOpts...)
	c.Loop.Start()

	if err := c.initBilling(); err != nil {
		c.Loop.Close()
		return nil, err
	}
	if err := c.initPush(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initEventSink(ctx); err != nil {
		c.Close()
		return nil, err
	}

	c.Health.Require("billing", func(ctx context.Context) error {
		st, err := c.Billing.Status(ctx)
		if err != nil {
			return err
		}
		if !st.Ready {
			return errors.New(string(st.State))
		}
		return nil
	})

	logger.Info("bridge initialized",
		"billing_provider", cfg.BillingProvider,
		"push_provider", cfg.PushProvider,
		"event_sink", cfg.EventSink,
	)
	return c, nil
}

func (c *Container) initBilling() error {
	catalog := billingSandbox.DefaultCatalog()
	if c.Config.SandboxCatalog != "" {
		loaded, err := billingSandbox.LoadCatalog(c.Config.SandboxCatalog)
		if err != nil {
			return err
		}
		catalog = loaded
		c.Logger.Info("loaded sandbox catalog", "path", c.Config.SandboxCatalog, "products", len(loaded))
	}

	c.BillingSandbox = billingSandbox.NewClient(billingSandbox.Config{
		Catalog:    catalog,
		SetupDelay: c.Config.SandboxSetupDelay,
		FlowDelay:  c.Config.SandboxFlowDelay,
	}, c.Logger)
	c.BillingClient = c.BillingSandbox

	if c.Config.BreakerEnabled {
		c.BillingClient = resilience.NewClient(c.BillingSandbox, resilience.Config{
			MaxRequests:      uint32(max(c.Config.BreakerMaxRequests, 1)),
			Interval:         c.Config.BreakerInterval,
			Timeout:          c.Config.BreakerTimeout,
			FailureThreshold: uint32(max(c.Config.BreakerFailureLimit, 1)),
		}, c.Logger)
	}

	c.Billing = billingApp.NewService(c.Loop, c.BillingClient,
		billingApp.WithLogger(c.Logger),
		billingApp.WithMetrics(c.Metrics),
		billingApp.WithStateObserver(c.billingStateChanged),
	)
	return nil
}

func (c *Container) initPush(ctx context.Context) error {
	switch c.Config.PushProvider {
	case config.ProviderRedis:
		client, err := connectRedis(ctx, c.Config.RedisURL)
		if err != nil {
			if !c.Config.IsDevelopment() {
				return err
			}
			c.Logger.Warn("Redis not available, push identity will use the sandbox provider", "error", err)
			c.PushProvider = c.sandboxPushProvider()
			break
		}
		provider, err := redisstore.NewProvider(client, c.Config.PushInstallationID)
		if err != nil {
			_ = client.Close()
			return err
		}
		c.RedisClient = client
		c.PushProvider = provider
		c.Health.Optional("redis", provider.Ping)
		c.Logger.Info("connected to Redis")
	default:
		c.PushProvider = c.sandboxPushProvider()
	}

	c.Push = pushApp.NewService(c.Loop, c.PushProvider, pushApp.ResolverConfig{
		MaxAttempts: c.Config.IdentifierMaxAttempts,
		RetryDelay:  c.Config.IdentifierRetryDelay,
	}, c.Logger, c.Metrics)
	return nil
}

func (c *Container) sandboxPushProvider() *pushSandbox.Provider {
	return pushSandbox.NewProvider(pushSandbox.Config{
		InstallationID: c.Config.PushInstallationID,
		ReadyAfter:     c.Config.SandboxIdentityReadyAfter,
		GrantOnPrompt:  true,
	})
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (c *Container) initEventSink(ctx context.Context) error {
	var publisher eventbus.Publisher
	switch c.Config.EventSink {
	case config.SinkNone:
		return nil
	case config.SinkMemory:
		publisher = eventbus.NewMemoryPublisher(c.Config.EventBuffer, c.Logger)
	case config.SinkRabbitMQ:
		p, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Config.EventExchange, c.Logger)
		if err != nil {
			if !c.Config.IsDevelopment() {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			c.Logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
			publisher = eventbus.NewNoopPublisher(c.Logger)
			break
		}
		c.Health.Optional("rabbitmq", p.Ping)
		publisher = p
	case config.SinkNATS:
		p, err := eventbus.NewNATSPublisher(c.Config.NATSURL, c.Config.EventSubject, c.Logger)
		if err != nil {
			if !c.Config.IsDevelopment() {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			c.Logger.Warn("NATS not available, using noop publisher", "error", err)
			publisher = eventbus.NewNoopPublisher(c.Logger)
			break
		}
		c.Health.Optional("nats", p.Ping)
		publisher = p
	default:
		return fmt.Errorf("unsupported event sink %q", c.Config.EventSink)
	}

	c.EventPublisher = publisher
	c.Forwarder = eventbus.NewForwarder(publisher, eventbus.ForwarderConfig{
		Buffer: c.Config.EventBuffer,
		Source: "nativebridge",
	}, c.Logger, c.Metrics)

	fwd := c.Forwarder
	c.forwardSub = billingApp.NewSubscriber("event-forwarder", func(e billingDomain.PurchaseEvent) {
		fwd.Forward(e, billingApp.EntryFor(e))
	})
	return c.Billing.Subscribe(ctx, c.forwardSub)
}

// Diagnostics is a point-in-time view of the execution context.
type Diagnostics struct {
	Billing         billingApp.Status        `json:"billing"`
	PendingRequests []runtime.PendingRequest `json:"pendingRequests"`
	KeepAlive       int                      `json:"keepAlive"`
}

// Diagnostics reports the billing status and the requests still in flight.
func (c *Container) Diagnostics(ctx context.Context) (Diagnostics, error) {
	st, err := c.Billing.Status(ctx)
	if err != nil {
		return Diagnostics{}, err
	}
	d := Diagnostics{Billing: st}
	err = c.Loop.Do(ctx, func() {
		d.PendingRequests = c.Loop.Pending()
		d.KeepAlive = c.keepAlive
	})
	return d, err
}

// observeKeepAlive runs on the loop.
func (c *Container) observeKeepAlive(req runtime.PendingRequest, alive bool) {
	if alive {
		c.keepAlive++
	} else if c.keepAlive > 0 {
		c.keepAlive--
	}
	c.Metrics.Gauge(observability.MetricKeepAlive, float64(c.keepAlive))
	c.Metrics.Gauge(observability.MetricPendingRequests, float64(len(c.Loop.Pending())))
	c.Logger.Debug("keep-alive changed", "command", req.Command, "token", req.Token, "alive", alive)
}

// billingStateChanged runs on the loop.
func (c *Container) billingStateChanged(_, to billingDomain.ConnectionState) {
	c.billingReady = to.IsReady()
	if c.Readiness != nil {
		c.Readiness.SetBillingReady(to.IsReady())
	}
}

// Close tears the bridge down: subscribers are dropped, the billing client is
// released, the loop stops and sinks are flushed and closed.
func (c *Container) Close() {
	c.closeOnce.Do(c.close)
}

func (c *Container) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if c.Billing != nil {
		if err := c.Billing.Shutdown(ctx); err != nil {
			c.Logger.Warn("error shutting down billing", "error", err)
		}
	}

	if c.Loop != nil {
		c.Loop.Close()
	}

	if c.Forwarder != nil {
		if err := c.Forwarder.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	} else if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}

	if c.Readiness != nil {
		c.Readiness.Stop()
	}
}
