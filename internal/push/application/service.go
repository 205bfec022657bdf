package application

import (
	"context"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/nativebridge/internal/push/domain"
	sharedDomain "github.com/felixgeelhaar/nativebridge/internal/shared/domain"
	"github.com/felixgeelhaar/nativebridge/internal/shared/runtime"
	"github.com/felixgeelhaar/nativebridge/pkg/observability"
)

// PermissionResult reports whether notifications are allowed.
type PermissionResult struct {
	Granted bool `json:"granted"`
}

// Service exposes the push-identity commands.
type Service struct {
	loop     *runtime.Loop
	provider domain.Provider
	resolver *Resolver
	logger   *slog.Logger
	metrics  observability.Metrics
}

// NewService creates the push service.
func NewService(loop *runtime.Loop, provider domain.Provider, cfg ResolverConfig, logger *slog.Logger, metrics observability.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	logger = logger.With("component", "push")
	return &Service{
		loop:     loop,
		provider: provider,
		resolver: NewResolver(loop, provider, cfg, logger, metrics),
		logger:   logger,
		metrics:  metrics,
	}
}

// Login associates externalID with the provider, then resolves the identifier.
func (s *Service) Login(ctx context.Context, externalID, proof string) (IdentifierResult, error) {
	externalID = strings.TrimSpace(externalID)
	proof = strings.TrimSpace(proof)
	return command(ctx, s, "login", func(req *runtime.Request[IdentifierResult]) {
		if externalID == "" {
			req.Reject(sharedDomain.ValidationError("login", "externalId is required"))
			return
		}
		req.KeepAlive()
		runtime.Then(req, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.provider.Login(ctx, externalID, proof)
		}, func(struct{}) {
			s.resolver.Resolve(req, externalID)
		})
	})
}

// GetIdentifier resolves the current identifier.
func (s *Service) GetIdentifier(ctx context.Context) (IdentifierResult, error) {
	return command(ctx, s, "getIdentifier", func(req *runtime.Request[IdentifierResult]) {
		s.resolver.Resolve(req, "")
	})
}

// Logout removes the external id association.
func (s *Service) Logout(ctx context.Context) error {
	_, err := command(ctx, s, "logout", func(req *runtime.Request[struct{}]) {
		runtime.Then(req, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.provider.Logout(ctx)
		}, req.Resolve)
	})
	return err
}

// RequestNotificationPermission prompts for permission unless it is already
// granted. A nil fallbackToSettings means true.
func (s *Service) RequestNotificationPermission(ctx context.Context, fallbackToSettings *bool) (PermissionResult, error) {
	fallback := true
	if fallbackToSettings != nil {
		fallback = *fallbackToSettings
	}
	return command(ctx, s, "requestNotificationPermission", func(req *runtime.Request[PermissionResult]) {
		runtime.Then(req, s.provider.PermissionGranted, func(granted bool) {
			if granted {
				req.Resolve(PermissionResult{Granted: true})
				return
			}
			req.KeepAlive()
			runtime.Then(req, func(ctx context.Context) (bool, error) {
				return s.provider.RequestPermission(ctx, fallback)
			}, func(granted bool) {
				req.Resolve(PermissionResult{Granted: granted})
			})
		})
	})
}

func command[T any](ctx context.Context, s *Service, op string, fn func(req *runtime.Request[T])) (T, error) {
	return observability.TrackCommand(ctx, s.logger, s.metrics, "push."+op, sharedDomain.KindName, func() (T, error) {
		return runtime.Submit(s.loop, op, fn).Await(ctx)
	})
}
