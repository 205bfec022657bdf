package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterPrompts registers MCP prompts for common bridge workflows.
func RegisterPrompts(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}

	srv.Prompt("purchase_flow").
		Description("Walk through buying a product: connect, pick an offer, launch, then read the outcome event.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			product := args["product_id"]
			if product == "" {
				product = "the product the user asks for"
			}
			return &mcp.PromptResult{
				Description: "Purchase Flow",
				Messages: []mcp.PromptMessage{
					{
						Role: string(mcp.RoleUser),
						Content: mcp.TextContent{
							Type: "text",
							Text: fmt.Sprintf(`Help me buy %s.

1. Call billing.connect. If it fails, report the provider message and stop.
2. Call billing.query_products with the product id and show the offers,
   including any free trial phase.
3. Ask which offer to use, then call billing.purchase with product_id and
   offer_token.
4. billing.purchase only confirms that the flow started. Read the
   bridge://events resource (or billing.recent_events) for the outcome:
   entitlementUpdated, purchaseCancelled or purchaseError.
5. On entitlementUpdated, call billing.query_entitlements and confirm the
   product is owned.`, product),
						},
					},
				},
			}, nil
		})

	srv.Prompt("push_identity").
		Description("Link the push identity to a user and enable notifications.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return &mcp.PromptResult{
				Description: "Push Identity Setup",
				Messages: []mcp.PromptMessage{
					{
						Role: string(mcp.RoleUser),
						Content: mcp.TextContent{
							Type: "text",
							Text: `Set up push notifications for me.

1. Call push.login with my external user id. Include the identity
   verification hash as proof if my backend issued one.
2. Report the identifier it returns. A timeout means the provider has not
   finished initializing; push.get_identifier can be retried later.
3. Call push.request_permission and tell me whether notifications are
   granted.`,
						},
					},
				},
			}, nil
		})

	return nil
}
