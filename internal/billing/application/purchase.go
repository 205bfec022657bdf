package application

import (
	"context"
	"strings"

	"github.com/felixgeelhaar/nativebridge/internal/billing/domain"
	sharedDomain "github.com/felixgeelhaar/nativebridge/internal/shared/domain"
	"github.com/felixgeelhaar/nativebridge/internal/shared/runtime"
	"github.com/felixgeelhaar/nativebridge/pkg/observability"
)

// LaunchResult acknowledges that a purchase flow started. The purchase outcome
// is delivered later as an event.
type LaunchResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	ProductID  string `json:"productId"`
	OfferToken string `json:"offerToken,omitempty"`
}

// Purchase launches the purchase flow for productID. An empty offerToken
// selects the product's default offer.
func (s *Service) Purchase(ctx context.Context, productID, offerToken string) (LaunchResult, error) {
	return command(ctx, s, "purchase", func(req *runtime.Request[LaunchResult]) {
		productID := strings.TrimSpace(productID)
		if productID == "" {
			req.Reject(sharedDomain.ValidationError("purchase", "productId parameter is required"))
			return
		}
		if err := s.conn.Require("purchase"); err != nil {
			req.Reject(err)
			return
		}

		fetchProducts(s, req, []string{productID}, func(products []domain.Product) {
			product, ok := findProduct(products, productID)
			if !ok {
				req.Reject(sharedDomain.NotFoundError("purchase", "Product not found: %s", productID))
				return
			}

			offer, err := selectOffer(product, strings.TrimSpace(offerToken))
			if err != nil {
				req.Reject(err)
				return
			}
			// The connection may have dropped during the lookup.
			if err := s.conn.Require("purchase"); err != nil {
				req.Reject(err)
				return
			}

			s.launch(req, domain.FlowParams{ProductID: product.ProductID, OfferToken: offer.OfferToken})
		})
	})
}

func (s *Service) launch(req *runtime.Request[LaunchResult], params domain.FlowParams) {
	runtime.Then(req, func(ctx context.Context) (domain.BillingResult, error) {
		return s.client.LaunchBillingFlow(ctx, params), nil
	}, func(result domain.BillingResult) {
		if !result.OK() {
			req.Reject(sharedDomain.ProviderError("purchase", result.DebugMessage))
			return
		}
		s.metrics.Counter(observability.MetricPurchasesLaunched, 1, observability.T("product", params.ProductID))
		req.Resolve(LaunchResult{
			Success:    true,
			Message:    "Billing flow launched",
			ProductID:  params.ProductID,
			OfferToken: params.OfferToken,
		})
	})
}

func findProduct(products []domain.Product, productID string) (domain.Product, bool) {
	for _, p := range products {
		if p.ProductID == productID {
			return p, true
		}
	}
	return domain.Product{}, false
}

// selectOffer picks the offer for token, or the default offer when token is
// empty. A product without offers launches with no offer token.
func selectOffer(product domain.Product, token string) (domain.Offer, error) {
	if token == "" {
		offer, _ := product.DefaultOffer()
		return offer, nil
	}
	offer, ok := product.OfferByToken(token)
	if !ok {
		return domain.Offer{}, sharedDomain.NotFoundError("purchase", "Offer not found for product %s: %s", product.ProductID, token)
	}
	return offer, nil
}
