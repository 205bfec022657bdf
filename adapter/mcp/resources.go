package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterResources registers MCP resources that expose bridge state.
func RegisterResources(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}
	app := deps.App

	srv.Resource("bridge://events").
		Name("Purchase events").
		Description("Recently dispatched purchase events: entitlementUpdated, purchaseCancelled and purchaseError").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			if app == nil || app.Billing == nil {
				return nil, errBillingUnavailable
			}
			entries, err := app.Billing.RecentEvents(ctx, 0)
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, entries)
		})

	srv.Resource("bridge://status").
		Name("Bridge status").
		Description("Billing connection state, in-flight requests and keep-alive count").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			if app == nil || app.Diagnostics == nil {
				return nil, fmt.Errorf("diagnostics not configured")
			}
			d, err := app.Diagnostics(ctx)
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, d)
		})

	return nil
}

func jsonResource(uri string, v any) (*mcp.ResourceContent, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ResourceContent{
		URI:      uri,
		MimeType: "application/json",
		Text:     string(data),
	}, nil
}
