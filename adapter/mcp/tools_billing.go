package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/nativebridge/adapter/cli"
	billingApp "github.com/felixgeelhaar/nativebridge/internal/billing/application"
	"github.com/felixgeelhaar/nativebridge/internal/billing/domain"
)

type queryProductsInput struct {
	ProductIDs []string `json:"product_ids" jsonschema:"required"`
}

type purchaseInput struct {
	ProductID  string `json:"product_id" jsonschema:"required"`
	OfferToken string `json:"offer_token,omitempty"`
}

type recentEventsInput struct {
	Limit int `json:"limit,omitempty"`
}

var errBillingUnavailable = errors.New("billing service not configured")

type billingTools struct {
	app *cli.App
}

func (t billingTools) service() (*billingApp.Service, error) {
	if t.app == nil || t.app.Billing == nil {
		return nil, errBillingUnavailable
	}
	return t.app.Billing, nil
}

func (t billingTools) connect(ctx context.Context, _ struct{}) (billingApp.ConnectResult, error) {
	svc, err := t.service()
	if err != nil {
		return billingApp.ConnectResult{}, err
	}
	return result(svc.Connect(ctx))
}

func (t billingTools) disconnect(ctx context.Context, _ struct{}) (map[string]any, error) {
	svc, err := t.service()
	if err != nil {
		return nil, err
	}
	if err := svc.Disconnect(ctx); err != nil {
		return nil, toolError(err)
	}
	return map[string]any{"success": true}, nil
}

func (t billingTools) status(ctx context.Context, _ struct{}) (billingApp.Status, error) {
	svc, err := t.service()
	if err != nil {
		return billingApp.Status{}, err
	}
	return result(svc.Status(ctx))
}

func (t billingTools) queryProducts(ctx context.Context, input queryProductsInput) ([]domain.Product, error) {
	svc, err := t.service()
	if err != nil {
		return nil, err
	}
	return result(svc.QueryProducts(ctx, input.ProductIDs))
}

func (t billingTools) queryEntitlements(ctx context.Context, _ struct{}) ([]domain.Entitlement, error) {
	svc, err := t.service()
	if err != nil {
		return nil, err
	}
	return result(svc.QueryEntitlements(ctx))
}

func (t billingTools) purchase(ctx context.Context, input purchaseInput) (billingApp.LaunchResult, error) {
	svc, err := t.service()
	if err != nil {
		return billingApp.LaunchResult{}, err
	}
	return result(svc.Purchase(ctx, input.ProductID, input.OfferToken))
}

func (t billingTools) recentEvents(ctx context.Context, input recentEventsInput) ([]billingApp.JournalEntry, error) {
	svc, err := t.service()
	if err != nil {
		return nil, err
	}
	return result(svc.RecentEvents(ctx, input.Limit))
}

func registerBillingTools(srv *mcp.Server, deps ToolDependencies) error {
	tools := billingTools{app: deps.App}
	l, log := deps.Limiter, deps.Logger

	srv.Tool("billing.connect").
		Description("Connect to the billing provider. Completes immediately when already connected.").
		Handler(limited(l, log, "billing.connect", tools.connect))

	srv.Tool("billing.disconnect").
		Description("Release the billing client").
		Handler(limited(l, log, "billing.disconnect", tools.disconnect))

	srv.Tool("billing.status").
		Description("Get the billing connection state and readiness").
		Handler(limited(l, log, "billing.status", tools.status))

	srv.Tool("billing.query_products").
		Description("Query product details by id. Unknown ids are omitted.").
		Handler(limited(l, log, "billing.query_products", tools.queryProducts))

	srv.Tool("billing.query_entitlements").
		Description("List the purchases the user owns").
		Handler(limited(l, log, "billing.query_entitlements", tools.queryEntitlements))

	srv.Tool("billing.purchase").
		Description("Launch a purchase flow. Returns once the flow has started; the outcome arrives as an event on bridge://events.").
		Handler(limited(l, log, "billing.purchase", tools.purchase))

	srv.Tool("billing.recent_events").
		Description("List recently dispatched purchase events, oldest first").
		Handler(limited(l, log, "billing.recent_events", tools.recentEvents))

	return nil
}
