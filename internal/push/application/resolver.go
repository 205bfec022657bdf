package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/nativebridge/internal/push/domain"
	sharedDomain "github.com/felixgeelhaar/nativebridge/internal/shared/domain"
	"github.com/felixgeelhaar/nativebridge/internal/shared/runtime"
	"github.com/felixgeelhaar/nativebridge/pkg/observability"
)

const (
	DefaultMaxAttempts = 10
	DefaultRetryDelay  = 500 * time.Millisecond
)

// IdentifierResult is a resolved identifier, with the external id echoed back
// for login.
type IdentifierResult struct {
	Identifier string `json:"identifier"`
	ExternalID string `json:"externalId,omitempty"`
}

// ResolverConfig bounds the polling loop.
type ResolverConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// Resolver polls the provider until an identifier appears or the attempt
// budget runs out. Re-checks are scheduled on the loop; nothing sleeps.
type Resolver struct {
	loop     *runtime.Loop
	provider domain.Provider
	cfg      ResolverConfig
	logger   *slog.Logger
	metrics  observability.Metrics
}

// NewResolver creates a resolver. Zero config values select the defaults.
func NewResolver(loop *runtime.Loop, provider domain.Provider, cfg ResolverConfig, logger *slog.Logger, metrics observability.Metrics) *Resolver {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Resolver{loop: loop, provider: provider, cfg: cfg, logger: logger, metrics: metrics}
}

// Resolve settles req with the identifier. It holds req's keep-alive until
// the request settles. Loop only.
func (r *Resolver) Resolve(req *runtime.Request[IdentifierResult], externalID string) {
	req.KeepAlive()
	r.attempt(req, externalID, 1)
}

func (r *Resolver) attempt(req *runtime.Request[IdentifierResult], externalID string, n int) {
	if req.Settled() {
		return
	}
	r.metrics.Counter(observability.MetricIdentifierAttempts, 1)

	runtime.Then(req, func(ctx context.Context) (domain.Identity, error) {
		return r.provider.Identity(ctx)
	}, func(identity domain.Identity) {
		if id := identity.Identifier(); id != "" {
			r.logger.Debug("identifier resolved", "attempt", n)
			req.Resolve(IdentifierResult{Identifier: id, ExternalID: externalID})
			return
		}
		if n >= r.cfg.MaxAttempts {
			r.metrics.Counter(observability.MetricIdentifierTimeouts, 1)
			r.logger.Warn("identifier not available", "attempts", n)
			req.Reject(sharedDomain.TimeoutError(req.Command(), "identifier not available after waiting for initialization"))
			return
		}
		r.loop.PostDelayed(r.cfg.RetryDelay, func() {
			req.Guard(func() { r.attempt(req, externalID, n+1) })
		})
	})
}
