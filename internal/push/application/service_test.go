package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/nativebridge/internal/push/domain"
	sharedDomain "github.com/felixgeelhaar/nativebridge/internal/shared/domain"
	"github.com/felixgeelhaar/nativebridge/internal/shared/runtime"
	"github.com/felixgeelhaar/nativebridge/internal/shared/runtime/runtimetest"
	"github.com/felixgeelhaar/nativebridge/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns an empty identity for the first emptyFor calls.
type fakeProvider struct {
	mu sync.Mutex

	emptyFor   int
	identity   domain.Identity
	identityFn func(call int) (domain.Identity, error)

	loginErr  error
	logoutErr error

	granted     bool
	promptGrant bool
	promptErr   error

	identityCalls int
	logins        []string
	proofs        []string
	logouts       int
	prompts       []bool
}

func (f *fakeProvider) Login(ctx context.Context, externalID, proof string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins = append(f.logins, externalID)
	f.proofs = append(f.proofs, proof)
	return f.loginErr
}

func (f *fakeProvider) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	return f.logoutErr
}

func (f *fakeProvider) Identity(ctx context.Context) (domain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identityCalls++
	if f.identityFn != nil {
		return f.identityFn(f.identityCalls)
	}
	if f.identityCalls <= f.emptyFor {
		return domain.Identity{}, nil
	}
	return f.identity, nil
}

func (f *fakeProvider) PermissionGranted(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.granted, nil
}

func (f *fakeProvider) RequestPermission(ctx context.Context, fallbackToSettings bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, fallbackToSettings)
	if f.promptErr != nil {
		return false, f.promptErr
	}
	f.granted = f.promptGrant
	return f.promptGrant, nil
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identityCalls
}

type keepAliveLog struct {
	mu     sync.Mutex
	events []bool
}

func (k *keepAliveLog) hook(_ runtime.PendingRequest, alive bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.events = append(k.events, alive)
}

func (k *keepAliveLog) snapshot() []bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]bool(nil), k.events...)
}

type pushHarness struct {
	provider  *fakeProvider
	scheduler *runtimetest.Scheduler
	keepAlive *keepAliveLog
	metrics   *observability.InMemoryMetrics
	service   *Service
}

func newPushHarness(t *testing.T, provider *fakeProvider) *pushHarness {
	t.Helper()
	h := &pushHarness{
		provider:  provider,
		scheduler: &runtimetest.Scheduler{},
		keepAlive: &keepAliveLog{},
		metrics:   observability.NewInMemoryMetrics(),
	}
	loop := runtime.NewLoop(runtime.WithScheduler(h.scheduler), runtime.WithKeepAliveHook(h.keepAlive.hook))
	loop.Start()
	t.Cleanup(loop.Close)
	h.service = NewService(loop, provider, ResolverConfig{}, nil, h.metrics)
	return h
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func repeatDelay(n int) []time.Duration {
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = DefaultRetryDelay
	}
	return out
}

func TestGetIdentifier_ImmediatelyAvailable(t *testing.T) {
	h := newPushHarness(t, &fakeProvider{identity: domain.Identity{UserID: "user-1"}})

	res, err := h.service.GetIdentifier(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, "user-1", res.Identifier)
	assert.Empty(t, res.ExternalID)
	assert.Empty(t, h.scheduler.Delays())
	assert.Equal(t, []bool{true, false}, h.keepAlive.snapshot())
}

func TestGetIdentifier_SucceedsOnTenthAttempt(t *testing.T) {
	h := newPushHarness(t, &fakeProvider{emptyFor: 9, identity: domain.Identity{UserID: "user-10"}})

	res, err := h.service.GetIdentifier(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, "user-10", res.Identifier)
	assert.Equal(t, 10, h.provider.calls())
	assert.Equal(t, repeatDelay(9), h.scheduler.Delays())
	assert.Equal(t, []bool{true, false}, h.keepAlive.snapshot())
}

func TestGetIdentifier_TimesOutAfterTenAttempts(t *testing.T) {
	h := newPushHarness(t, &fakeProvider{emptyFor: 1 << 30})

	_, err := h.service.GetIdentifier(testContext(t))
	require.ErrorIs(t, err, sharedDomain.ErrTimeout)
	assert.Equal(t, "identifier not available after waiting for initialization", err.Error())
	assert.Equal(t, 10, h.provider.calls())
	assert.Equal(t, repeatDelay(9), h.scheduler.Delays())
	assert.Equal(t, []bool{true, false}, h.keepAlive.snapshot())
	assert.Equal(t, int64(10), h.metrics.GetCounter(observability.MetricIdentifierAttempts))
	assert.Equal(t, int64(1), h.metrics.GetCounter(observability.MetricIdentifierTimeouts))
}

func TestGetIdentifier_FallsBackToSubscriptionID(t *testing.T) {
	h := newPushHarness(t, &fakeProvider{identity: domain.Identity{SubscriptionID: "sub-7"}})

	res, err := h.service.GetIdentifier(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, "sub-7", res.Identifier)
}

func TestGetIdentifier_ProviderErrorReleasesKeepAlive(t *testing.T) {
	h := newPushHarness(t, &fakeProvider{identityFn: func(call int) (domain.Identity, error) {
		if call < 3 {
			return domain.Identity{}, nil
		}
		return domain.Identity{}, errors.New("sdk not initialized")
	}})

	_, err := h.service.GetIdentifier(testContext(t))
	require.ErrorIs(t, err, sharedDomain.ErrProvider)
	assert.Equal(t, "sdk not initialized", err.Error())
	assert.Equal(t, 3, h.provider.calls())
	assert.Equal(t, []bool{true, false}, h.keepAlive.snapshot())
}

func TestGetIdentifier_ProviderPanicReleasesKeepAlive(t *testing.T) {
	h := newPushHarness(t, &fakeProvider{identityFn: func(call int) (domain.Identity, error) {
		panic("user model missing")
	}})

	_, err := h.service.GetIdentifier(testContext(t))
	require.ErrorIs(t, err, sharedDomain.ErrProvider)
	assert.Equal(t, "user model missing", err.Error())
	assert.Equal(t, []bool{true, false}, h.keepAlive.snapshot())
}

func TestLogin_EchoesExternalID(t *testing.T) {
	h := newPushHarness(t, &fakeProvider{emptyFor: 2, identity: domain.Identity{UserID: "user-1"}})

	res, err := h.service.Login(testContext(t), " gardener@example.com ", "hash-123")
	require.NoError(t, err)
	assert.Equal(t, "user-1", res.Identifier)
	assert.Equal(t, "gardener@example.com", res.ExternalID)
	assert.Equal(t, []string{"gardener@example.com"}, h.provider.logins)
	assert.Equal(t, []string{"hash-123"}, h.provider.proofs)
	assert.Equal(t, repeatDelay(2), h.scheduler.Delays())
	assert.Equal(t, []bool{true, false}, h.keepAlive.snapshot())
}

func TestLogin_RequiresExternalID(t *testing.T) {
	h := newPushHarness(t, &fakeProvider{identity: domain.Identity{UserID: "user-1"}})

	_, err := h.service.Login(testContext(t), "   ", "")
	require.ErrorIs(t, err, sharedDomain.ErrValidation)
	assert.Empty(t, h.provider.logins)
	assert.Equal(t, 0, h.provider.calls())
	assert.Empty(t, h.keepAlive.snapshot())
}

func TestLogin_ProviderFailure(t *testing.T) {
	h := newPushHarness(t, &fakeProvider{loginErr: errors.New("invalid identity verification"), identity: domain.Identity{UserID: "u"}})

	_, err := h.service.Login(testContext(t), "someone", "")
	require.ErrorIs(t, err, sharedDomain.ErrProvider)
	assert.Equal(t, "invalid identity verification", err.Error())
	assert.Equal(t, 0, h.provider.calls())
	assert.Equal(t, []bool{true, false}, h.keepAlive.snapshot())
}

func TestLogoutThenGetIdentifier_DoesNotWedgeResolver(t *testing.T) {
	calls := 0
	provider := &fakeProvider{}
	provider.identityFn = func(call int) (domain.Identity, error) {
		calls++
		if calls <= 10 {
			return domain.Identity{}, nil
		}
		return domain.Identity{SubscriptionID: "fresh"}, nil
	}
	h := newPushHarness(t, provider)

	require.NoError(t, h.service.Logout(testContext(t)))
	_, err := h.service.GetIdentifier(testContext(t))
	require.ErrorIs(t, err, sharedDomain.ErrTimeout)

	res, err := h.service.GetIdentifier(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, "fresh", res.Identifier)
	assert.Equal(t, 1, provider.logouts)
}

func TestLogout_ProviderError(t *testing.T) {
	h := newPushHarness(t, &fakeProvider{logoutErr: errors.New("not logged in")})

	err := h.service.Logout(testContext(t))
	require.ErrorIs(t, err, sharedDomain.ErrProvider)
	assert.Equal(t, "not logged in", err.Error())
}

func TestRequestPermission(t *testing.T) {
	t.Run("already granted skips the prompt", func(t *testing.T) {
		h := newPushHarness(t, &fakeProvider{granted: true})
		res, err := h.service.RequestNotificationPermission(testContext(t), nil)
		require.NoError(t, err)
		assert.True(t, res.Granted)
		assert.Empty(t, h.provider.prompts)
		assert.Empty(t, h.keepAlive.snapshot())
	})

	t.Run("prompt defaults to settings fallback", func(t *testing.T) {
		h := newPushHarness(t, &fakeProvider{promptGrant: true})
		res, err := h.service.RequestNotificationPermission(testContext(t), nil)
		require.NoError(t, err)
		assert.True(t, res.Granted)
		assert.Equal(t, []bool{true}, h.provider.prompts)
		assert.Equal(t, []bool{true, false}, h.keepAlive.snapshot())
	})

	t.Run("denied", func(t *testing.T) {
		h := newPushHarness(t, &fakeProvider{promptGrant: false})
		fallback := false
		res, err := h.service.RequestNotificationPermission(testContext(t), &fallback)
		require.NoError(t, err)
		assert.False(t, res.Granted)
		assert.Equal(t, []bool{false}, h.provider.prompts)
	})

	t.Run("prompt failure", func(t *testing.T) {
		h := newPushHarness(t, &fakeProvider{promptErr: errors.New("activity not available")})
		_, err := h.service.RequestNotificationPermission(testContext(t), nil)
		require.ErrorIs(t, err, sharedDomain.ErrProvider)
		assert.Equal(t, "activity not available", err.Error())
		assert.Equal(t, []bool{true, false}, h.keepAlive.snapshot())
	})
}
