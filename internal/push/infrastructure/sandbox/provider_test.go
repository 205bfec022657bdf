package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/nativebridge/internal/push/application"
	"github.com/felixgeelhaar/nativebridge/internal/shared/runtime"
	"github.com/felixgeelhaar/nativebridge/internal/shared/runtime/runtimetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_EventuallyInitialized(t *testing.T) {
	p := NewProvider(Config{InstallationID: "install-1", ReadyAfter: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		id, err := p.Identity(ctx)
		require.NoError(t, err)
		assert.Empty(t, id.Identifier())
	}
	id, err := p.Identity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "install-1", id.Identifier())
}

func TestProvider_LoginDerivesStableUserID(t *testing.T) {
	p := NewProvider(Config{})
	ctx := context.Background()

	require.NoError(t, p.Login(ctx, "gardener@example.com", ""))
	first, _ := p.Identity(ctx)
	require.NoError(t, p.Login(ctx, "gardener@example.com", "proof"))
	second, _ := p.Identity(ctx)

	assert.NotEmpty(t, first.UserID)
	assert.Equal(t, first.UserID, second.UserID)
	assert.Equal(t, "gardener@example.com", p.ExternalID())

	require.NoError(t, p.Logout(ctx))
	third, _ := p.Identity(ctx)
	assert.NotEqual(t, first.UserID, third.UserID)
	assert.Empty(t, p.ExternalID())
}

func TestProvider_Permission(t *testing.T) {
	p := NewProvider(Config{GrantOnPrompt: true})
	ctx := context.Background()

	granted, err := p.PermissionGranted(ctx)
	require.NoError(t, err)
	assert.False(t, granted)

	granted, err = p.RequestPermission(ctx, true)
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, 1, p.Prompts())
}

func TestProvider_WithService(t *testing.T) {
	sched := &runtimetest.Scheduler{}
	loop := runtime.NewLoop(runtime.WithScheduler(sched))
	loop.Start()
	t.Cleanup(loop.Close)

	p := NewProvider(Config{ReadyAfter: 4})
	svc := application.NewService(loop, p, application.ResolverConfig{}, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := svc.Login(ctx, "gardener@example.com", "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Identifier)
	assert.Equal(t, "gardener@example.com", res.ExternalID)
	assert.Len(t, sched.Delays(), 4)

	res2, err := svc.GetIdentifier(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Identifier, res2.Identifier)

	perm, err := svc.RequestNotificationPermission(ctx, nil)
	require.NoError(t, err)
	assert.False(t, perm.Granted)
}
