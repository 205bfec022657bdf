package application

import (
	"context"

	"github.com/felixgeelhaar/nativebridge/internal/billing/domain"
	sharedDomain "github.com/felixgeelhaar/nativebridge/internal/shared/domain"
	"github.com/felixgeelhaar/nativebridge/internal/shared/runtime"
)

type productsResponse struct {
	result   domain.BillingResult
	products []domain.Product
}

type purchasesResponse struct {
	result    domain.BillingResult
	purchases []domain.Entitlement
}

// QueryProducts looks up products in one batched call. Ids the provider does
// not know are omitted from the result.
func (s *Service) QueryProducts(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	return command(ctx, s, "queryProducts", func(req *runtime.Request[[]domain.Product]) {
		ids := domain.NormalizeProductIDs(productIDs)
		if len(ids) == 0 {
			req.Reject(sharedDomain.ValidationError("queryProducts", "productIds parameter is required and must not be empty"))
			return
		}
		if err := s.conn.Require("queryProducts"); err != nil {
			req.Reject(err)
			return
		}

		fetchProducts(s, req, ids, func(products []domain.Product) {
			req.Resolve(products)
		})
	})
}

// QueryEntitlements returns the purchases the provider knows for this device.
func (s *Service) QueryEntitlements(ctx context.Context) ([]domain.Entitlement, error) {
	return command(ctx, s, "queryEntitlements", func(req *runtime.Request[[]domain.Entitlement]) {
		if err := s.conn.Require("queryEntitlements"); err != nil {
			req.Reject(err)
			return
		}

		runtime.Then(req, func(ctx context.Context) (purchasesResponse, error) {
			result, purchases := s.client.QueryPurchases(ctx)
			return purchasesResponse{result: result, purchases: purchases}, nil
		}, func(resp purchasesResponse) {
			if !resp.result.OK() {
				req.Reject(sharedDomain.ProviderError("queryEntitlements", resp.result.DebugMessage))
				return
			}
			if resp.purchases == nil {
				resp.purchases = []domain.Entitlement{}
			}
			req.Resolve(resp.purchases)
		})
	})
}

// fetchProducts issues one product query on behalf of req and continues with
// the matched products on the loop.
func fetchProducts[T any](s *Service, req *runtime.Request[T], ids []string, then func([]domain.Product)) {
	runtime.Then(req, func(ctx context.Context) (productsResponse, error) {
		result, products := s.client.QueryProducts(ctx, ids)
		return productsResponse{result: result, products: products}, nil
	}, func(resp productsResponse) {
		if !resp.result.OK() {
			req.Reject(sharedDomain.ProviderError(req.Command(), resp.result.DebugMessage))
			return
		}
		if resp.products == nil {
			resp.products = []domain.Product{}
		}
		then(resp.products)
	})
}
