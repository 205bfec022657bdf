package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/testutil"
	"github.com/felixgeelhaar/nativebridge/adapter/cli"
	"github.com/felixgeelhaar/nativebridge/internal/app/apptest"
	"github.com/felixgeelhaar/nativebridge/internal/billing/domain"
	billingSandbox "github.com/felixgeelhaar/nativebridge/internal/billing/infrastructure/sandbox"
	sharedDomain "github.com/felixgeelhaar/nativebridge/internal/shared/domain"
	"github.com/felixgeelhaar/nativebridge/internal/shared/infrastructure/ratelimit"
	"github.com/felixgeelhaar/nativebridge/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *cli.App {
	t.Helper()
	return cli.NewAppFromContainer(apptest.NewContainer(t))
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRegisterCLITools_ListTools(t *testing.T) {
	srv := mcp.NewServer(mcp.ServerInfo{
		Name:    "test",
		Version: "1.0.0",
		Capabilities: mcp.Capabilities{
			Tools: true,
		},
	})

	app := &cli.App{}
	require.NoError(t, RegisterCLITools(srv, ToolDependencies{App: app}))

	tc := testutil.NewTestClient(t, srv)
	defer tc.Close()

	tools, err := tc.ListTools()
	require.NoError(t, err)

	names := make(map[any]bool, len(tools))
	for _, tool := range tools {
		names[tool["name"]] = true
	}
	for _, want := range []string{
		"bridge.health",
		"billing.connect",
		"billing.query_products",
		"billing.query_entitlements",
		"billing.purchase",
		"push.login",
		"push.get_identifier",
		"push.logout",
		"push.request_permission",
	} {
		assert.True(t, names[want], "%s tool should be registered", want)
	}
}

func TestRegisterCLITools_RequiresApp(t *testing.T) {
	srv := mcp.NewServer(mcp.ServerInfo{Name: "test", Version: "1.0.0"})
	assert.Error(t, RegisterCLITools(nil, ToolDependencies{App: &cli.App{}}))
	assert.Error(t, RegisterCLITools(srv, ToolDependencies{}))
}

func TestBillingTools_NotConfigured(t *testing.T) {
	tools := billingTools{app: &cli.App{}}

	_, err := tools.connect(testContext(t), struct{}{})
	assert.ErrorIs(t, err, errBillingUnavailable)
	_, err = tools.purchase(testContext(t), purchaseInput{ProductID: "premium_monthly"})
	assert.ErrorIs(t, err, errBillingUnavailable)
}

func TestBillingTools_ErrorsCarryKind(t *testing.T) {
	tools := billingTools{app: newTestApp(t)}

	_, err := tools.queryEntitlements(testContext(t), struct{}{})
	require.ErrorIs(t, err, sharedDomain.ErrNotReady)
	assert.Equal(t, "not_ready: billing service not ready", err.Error())

	_, err = tools.connect(testContext(t), struct{}{})
	require.NoError(t, err)

	_, err = tools.purchase(testContext(t), purchaseInput{})
	require.ErrorIs(t, err, sharedDomain.ErrValidation)
	assert.Equal(t, "validation: productId parameter is required", err.Error())

	_, err = tools.purchase(testContext(t), purchaseInput{ProductID: "ghost"})
	require.ErrorIs(t, err, sharedDomain.ErrNotFound)
	assert.Equal(t, "not_found: Product not found: ghost", err.Error())
}

func TestBillingTools_PurchaseThenEvent(t *testing.T) {
	app := newTestApp(t)
	tools := billingTools{app: app}
	ctx := testContext(t)

	connected, err := tools.connect(ctx, struct{}{})
	require.NoError(t, err)
	assert.True(t, connected.Success)

	products, err := tools.queryProducts(ctx, queryProductsInput{ProductIDs: []string{"premium_monthly", "missing"}})
	require.NoError(t, err)
	require.Len(t, products, 1)

	launch, err := tools.purchase(ctx, purchaseInput{ProductID: "premium_monthly", OfferToken: "sandbox-premium-monthly-trial"})
	require.NoError(t, err)
	assert.True(t, launch.Success)
	assert.Equal(t, "sandbox-premium-monthly-trial", launch.OfferToken)

	require.Eventually(t, func() bool {
		entries, err := tools.recentEvents(ctx, recentEventsInput{})
		return err == nil && len(entries) == 1
	}, 2*time.Second, 5*time.Millisecond)

	entries, err := tools.recentEvents(ctx, recentEventsInput{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.EventEntitlementUpdated, entries[0].Kind)

	owned, err := tools.queryEntitlements(ctx, struct{}{})
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.True(t, owned[0].Grants("premium_monthly"))

	app.Sandbox.SetNextOutcome(billingSandbox.OutcomeCancelled)
	_, err = tools.purchase(ctx, purchaseInput{ProductID: "premium_yearly"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		entries, err := tools.recentEvents(ctx, recentEventsInput{Limit: 1})
		return err == nil && len(entries) == 1 && entries[0].Kind == domain.EventPurchaseCancelled
	}, 2*time.Second, 5*time.Millisecond)

	_, err = tools.disconnect(ctx, struct{}{})
	require.NoError(t, err)
	st, err := tools.status(ctx, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, domain.StateDisconnected, st.State)
}

func TestPushTools(t *testing.T) {
	tools := pushTools{app: newTestApp(t)}
	ctx := testContext(t)

	id, err := tools.getIdentifier(ctx, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, "install-test", id.Identifier)

	res, err := tools.login(ctx, loginInput{ExternalID: "gardener@example.com", AuthHash: "hash"})
	require.NoError(t, err)
	assert.Equal(t, "gardener@example.com", res.ExternalID)

	_, err = tools.login(ctx, loginInput{})
	require.ErrorIs(t, err, sharedDomain.ErrValidation)

	denied := false
	perm, err := tools.requestPermission(ctx, permissionInput{FallbackToSettings: &denied})
	require.NoError(t, err)
	assert.True(t, perm.Granted)

	_, err = tools.logout(ctx, struct{}{})
	require.NoError(t, err)
}

func TestLoginInput_ProofAliases(t *testing.T) {
	assert.Equal(t, "p", loginInput{Proof: "p", AuthHash: "a", JWTToken: "j"}.proof())
	assert.Equal(t, "a", loginInput{AuthHash: "a", JWTToken: "j"}.proof())
	assert.Equal(t, "j", loginInput{JWTToken: "j"}.proof())
	assert.Empty(t, loginInput{}.proof())
}

func TestCoreTools(t *testing.T) {
	tools := coreTools{app: newTestApp(t)}
	ctx := testContext(t)

	d, err := tools.diagnostics(ctx, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, domain.StateDisconnected, d.Billing.State)
	assert.Empty(t, d.PendingRequests)

	h, err := tools.health(ctx, struct{}{})
	require.NoError(t, err)
	assert.Contains(t, h.Checks, "billing")

	_, err = coreTools{app: &cli.App{}}.health(ctx, struct{}{})
	assert.Error(t, err)
}

func TestLimited(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context, in string) (string, error) {
		calls++
		return in, nil
	}

	limiter := ratelimit.New(0.001, 1, 0)
	wrapped := limited(limiter, nil, "billing.purchase", fn)

	out, err := wrapped(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "a", out)

	_, err = wrapped(context.Background(), "b")
	assert.EqualError(t, err, "rate limit exceeded for billing.purchase")
	assert.Equal(t, 1, calls)

	unlimited := limited[string, string](nil, nil, "x", fn)
	_, err = unlimited(context.Background(), "c")
	assert.NoError(t, err)
}

func TestLimited_TagsCommandContext(t *testing.T) {
	var got observability.Command
	fn := func(ctx context.Context, _ struct{}) (bool, error) {
		cmd, ok := observability.CommandFrom(ctx)
		got = cmd
		return ok, nil
	}

	ok, err := limited[struct{}, bool](nil, nil, "push.get_identifier", fn)(context.Background(), struct{}{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "push.get_identifier", got.Name)
	assert.Equal(t, observability.SurfaceMCP, got.Surface)
	assert.NotEmpty(t, got.RequestID)
}

func TestToolError(t *testing.T) {
	assert.NoError(t, toolError(nil))

	err := toolError(errors.New("boom"))
	assert.Equal(t, "provider: boom", err.Error())

	err = toolError(sharedDomain.TimeoutError("push.get_identifier", "identifier not available"))
	assert.Equal(t, "timeout: identifier not available", err.Error())
	assert.ErrorIs(t, err, sharedDomain.ErrTimeout)
}
