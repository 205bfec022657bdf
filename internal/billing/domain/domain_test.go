package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/felixgeelhaar/nativebridge/internal/billing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func premiumProduct() domain.Product {
	return domain.Product{
		ProductID:   "premium_monthly",
		Name:        "Premium",
		Title:       "Premium (Happy Plants)",
		Description: "All features",
		Offers: []domain.Offer{
			{
				OfferID:    "",
				OfferToken: "tok-base",
				BasePlanID: "monthly",
				PricingPhases: []domain.PricingPhase{
					{FormattedPrice: "$4.99", PriceAmountMicros: 4_990_000, PriceCurrencyCode: "USD", BillingPeriod: "P1M", RecurrenceMode: domain.RecurrenceInfinite},
				},
			},
			{
				OfferID:    "trial",
				OfferToken: "tok-trial",
				BasePlanID: "monthly",
				PricingPhases: []domain.PricingPhase{
					{FormattedPrice: "Free", PriceAmountMicros: 0, PriceCurrencyCode: "USD", BillingPeriod: "P1W", BillingCycleCount: 1, RecurrenceMode: domain.RecurrenceFinite},
					{FormattedPrice: "$4.99", PriceAmountMicros: 4_990_000, PriceCurrencyCode: "USD", BillingPeriod: "P1M", RecurrenceMode: domain.RecurrenceInfinite},
				},
			},
		},
	}
}

func TestProduct_RoundTripKeepsOffersAndPhases(t *testing.T) {
	original := premiumProduct()

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded domain.Product
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, original, decoded)
	require.Len(t, decoded.Offers, 2)
	assert.Equal(t, "tok-base", decoded.Offers[0].OfferToken)
	require.Len(t, decoded.Offers[1].PricingPhases, 2)
	assert.Equal(t, "P1W", decoded.Offers[1].PricingPhases[0].BillingPeriod)
	assert.Equal(t, "P1M", decoded.Offers[1].PricingPhases[1].BillingPeriod)
}

func TestOffer_IntroductoryPhaseIsStructural(t *testing.T) {
	p := premiumProduct()

	_, ok := p.Offers[0].IntroductoryPhase()
	assert.False(t, ok)
	assert.False(t, p.Offers[0].HasFreeTrial())

	intro, ok := p.Offers[1].IntroductoryPhase()
	require.True(t, ok)
	assert.Equal(t, "P1W", intro.BillingPeriod)
	assert.True(t, p.Offers[1].HasFreeTrial())
}

func TestOffer_DiscountedIntroIsNotFreeTrial(t *testing.T) {
	offer := domain.Offer{PricingPhases: []domain.PricingPhase{
		{PriceAmountMicros: 990_000, BillingCycleCount: 3, RecurrenceMode: domain.RecurrenceFinite},
		{PriceAmountMicros: 4_990_000, RecurrenceMode: domain.RecurrenceInfinite},
	}}
	_, ok := offer.IntroductoryPhase()
	assert.True(t, ok)
	assert.False(t, offer.HasFreeTrial())
}

func TestProduct_OfferSelection(t *testing.T) {
	p := premiumProduct()

	def, ok := p.DefaultOffer()
	require.True(t, ok)
	assert.Equal(t, "tok-base", def.OfferToken)

	o, ok := p.OfferByToken("tok-trial")
	require.True(t, ok)
	assert.Equal(t, "trial", o.OfferID)

	_, ok = p.OfferByToken("missing")
	assert.False(t, ok)

	_, ok = domain.Product{ProductID: "coins"}.DefaultOffer()
	assert.False(t, ok)
}

func TestNormalizeProductIDs(t *testing.T) {
	got := domain.NormalizeProductIDs([]string{" a ", "", "b", "a", "   "})
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Empty(t, domain.NormalizeProductIDs(nil))
}

func TestClassifyUpdate(t *testing.T) {
	purchases := []domain.Entitlement{
		{OrderID: "o1", PurchaseToken: "t1", State: domain.PurchaseStatePurchased, ProductIDs: []string{"premium_monthly"}},
		{OrderID: "o2", PurchaseToken: "t2", State: domain.PurchaseStatePending},
	}

	t.Run("ok emits one update per entitlement", func(t *testing.T) {
		events := domain.ClassifyUpdate(domain.Result(domain.ResponseOK, ""), purchases)
		require.Len(t, events, 2)
		first, ok := events[0].(*domain.EntitlementUpdated)
		require.True(t, ok)
		assert.Equal(t, "o1", first.Entitlement.OrderID)
		assert.Equal(t, "t1", first.Subject())
		assert.Equal(t, domain.RoutingKeyEntitlementUpdated, first.RoutingKey())
		assert.Equal(t, domain.EventEntitlementUpdated, events[1].Kind())
	})

	t.Run("user cancel", func(t *testing.T) {
		events := domain.ClassifyUpdate(domain.Result(domain.ResponseUserCanceled, "canceled"), nil)
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventPurchaseCancelled, events[0].Kind())
	})

	t.Run("other failures pass the message through", func(t *testing.T) {
		events := domain.ClassifyUpdate(domain.Result(domain.ResponseItemAlreadyOwned, "Item is already owned."), nil)
		require.Len(t, events, 1)
		failed, ok := events[0].(*domain.PurchaseFailed)
		require.True(t, ok)
		assert.Equal(t, "Item is already owned.", failed.Message)
		assert.Equal(t, domain.ResponseItemAlreadyOwned, failed.Code)
	})

	t.Run("ok without purchases is an error", func(t *testing.T) {
		events := domain.ClassifyUpdate(domain.Result(domain.ResponseOK, "no purchases"), nil)
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventPurchaseError, events[0].Kind())
	})
}

func TestEntitlement_Grants(t *testing.T) {
	e := domain.Entitlement{State: domain.PurchaseStatePurchased, ProductIDs: []string{"a", "b"}}
	assert.True(t, e.Grants("b"))
	assert.False(t, e.Grants("c"))
	assert.True(t, e.IsActive())
	assert.False(t, domain.Entitlement{State: domain.PurchaseStatePending}.IsActive())
}

func TestCancelledStateIsDistinctFromCancelledEvent(t *testing.T) {
	assert.False(t, domain.Entitlement{State: domain.PurchaseStateCancelled}.IsActive())

	var event domain.PurchaseEvent = domain.NewPurchaseCancelled()
	_, ok := event.(*domain.PurchaseCancelled)
	assert.True(t, ok)
	assert.Equal(t, domain.EventPurchaseCancelled, event.Kind())
}
