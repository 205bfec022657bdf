package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/nativebridge/internal/billing/domain"
	"github.com/felixgeelhaar/nativebridge/internal/shared/runtime"
	"github.com/felixgeelhaar/nativebridge/pkg/observability"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu sync.Mutex

	listener domain.Listener

	setupResult domain.BillingResult
	setupGate   chan struct{}
	setupPanic  any

	products       []domain.Product
	productsResult domain.BillingResult
	purchases      []domain.Entitlement
	purchaseResult domain.BillingResult
	launchResult   domain.BillingResult

	startCalls    int
	endCalls      int
	productCalls  [][]string
	purchaseCalls int
	launches      []domain.FlowParams
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		setupResult:    domain.Result(domain.ResponseOK, ""),
		productsResult: domain.Result(domain.ResponseOK, ""),
		purchaseResult: domain.Result(domain.ResponseOK, ""),
		launchResult:   domain.Result(domain.ResponseOK, ""),
	}
}

func (f *fakeClient) SetListener(l domain.Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = l
}

func (f *fakeClient) StartConnection(ctx context.Context) domain.BillingResult {
	f.mu.Lock()
	f.startCalls++
	gate := f.setupGate
	result := f.setupResult
	p := f.setupPanic
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.Result(domain.ResponseServiceDisconnected, ctx.Err().Error())
		}
	}
	if p != nil {
		panic(p)
	}
	return result
}

func (f *fakeClient) EndConnection() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endCalls++
}

func (f *fakeClient) QueryProducts(ctx context.Context, ids []string) (domain.BillingResult, []domain.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productCalls = append(f.productCalls, ids)
	if !f.productsResult.OK() {
		return f.productsResult, nil
	}
	var out []domain.Product
	for _, p := range f.products {
		for _, id := range ids {
			if p.ProductID == id {
				out = append(out, p)
			}
		}
	}
	return f.productsResult, out
}

func (f *fakeClient) QueryPurchases(ctx context.Context) (domain.BillingResult, []domain.Entitlement) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purchaseCalls++
	return f.purchaseResult, f.purchases
}

func (f *fakeClient) LaunchBillingFlow(ctx context.Context, params domain.FlowParams) domain.BillingResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launches = append(f.launches, params)
	return f.launchResult
}

func (f *fakeClient) externalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.productCalls) + f.purchaseCalls + len(f.launches)
}

func (f *fakeClient) productQueries() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.productCalls...)
}

func (f *fakeClient) launchCalls() []domain.FlowParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.FlowParams(nil), f.launches...)
}

func (f *fakeClient) currentListener() domain.Listener {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listener
}

type harness struct {
	loop    *runtime.Loop
	client  *fakeClient
	service *Service
	metrics *observability.InMemoryMetrics
}

func newHarness(t *testing.T, client *fakeClient) *harness {
	t.Helper()
	loop := runtime.NewLoop()
	loop.Start()
	t.Cleanup(loop.Close)

	metrics := observability.NewInMemoryMetrics()
	svc := NewService(loop, client, WithMetrics(metrics), WithJournalSize(3))
	return &harness{loop: loop, client: client, service: svc, metrics: metrics}
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	_, err := h.service.Connect(testContext(t))
	require.NoError(t, err)
}

// sync waits until every task posted so far has run.
func (h *harness) sync(t *testing.T) {
	t.Helper()
	require.NoError(t, h.loop.Do(testContext(t), func() {}))
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func sampleCatalog() []domain.Product {
	return []domain.Product{
		{
			ProductID: "premium_monthly",
			Title:     "Premium Monthly",
			Offers: []domain.Offer{
				{OfferToken: "tok-base", BasePlanID: "monthly", PricingPhases: []domain.PricingPhase{
					{PriceAmountMicros: 4_990_000, BillingPeriod: "P1M", RecurrenceMode: domain.RecurrenceInfinite},
				}},
				{OfferID: "trial", OfferToken: "tok-trial", BasePlanID: "monthly", PricingPhases: []domain.PricingPhase{
					{PriceAmountMicros: 0, BillingPeriod: "P1W", BillingCycleCount: 1, RecurrenceMode: domain.RecurrenceFinite},
					{PriceAmountMicros: 4_990_000, BillingPeriod: "P1M", RecurrenceMode: domain.RecurrenceInfinite},
				}},
			},
		},
		{ProductID: "coins_100", Title: "100 Coins"},
	}
}
