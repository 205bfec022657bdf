package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/nativebridge/adapter/cli"
	billingService "github.com/felixgeelhaar/nativebridge/internal/billing/application"
	"github.com/felixgeelhaar/nativebridge/internal/billing/domain"
	"github.com/felixgeelhaar/nativebridge/internal/billing/infrastructure/sandbox"
	"github.com/spf13/cobra"
)

var (
	purchaseOffer       string
	purchaseWait        time.Duration
	purchaseOutcome     string
	purchaseAcknowledge bool
)

var purchaseCmd = &cobra.Command{
	Use:   "purchase <product-id>",
	Short: "Launch a purchase flow",
	Long: `Launch the provider's purchase flow for a product. The command returns
as soon as the flow has started; the outcome is delivered as an event.
Use --wait to block until that event arrives.

Examples:
  bridge billing purchase premium_monthly
  bridge billing purchase premium_monthly --offer sandbox-premium-monthly-trial --wait 5s
  bridge billing purchase premium_yearly --outcome cancelled --wait 5s
  bridge billing purchase premium_yearly --wait 5s --acknowledge`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := billingApp()
		if err != nil {
			return err
		}
		if err := applyOutcome(app, purchaseOutcome); err != nil {
			return err
		}
		if purchaseAcknowledge {
			if app.Sandbox == nil {
				return errors.New("--acknowledge requires the sandbox billing provider")
			}
			if purchaseWait <= 0 {
				return errors.New("--acknowledge requires --wait")
			}
		}
		if err := connected(cmd, app); err != nil {
			return err
		}

		productID := ""
		if len(args) > 0 {
			productID = args[0]
		}

		var events chan domain.PurchaseEvent
		var sub billingService.Subscriber
		if purchaseWait > 0 {
			events = make(chan domain.PurchaseEvent, 1)
			sub = billingService.NewSubscriber("cli-purchase", func(e domain.PurchaseEvent) {
				select {
				case events <- e:
				default:
				}
			})
			if err := app.Billing.Subscribe(cmd.Context(), sub); err != nil {
				return err
			}
			defer func() { _ = app.Billing.Unsubscribe(cmd.Context(), sub) }()
		}

		res, err := app.Billing.Purchase(cmd.Context(), productID, purchaseOffer)
		if err != nil {
			return err
		}
		if outputJSON {
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s", res.Message, res.ProductID)
			if res.OfferToken != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " (offer %s)", res.OfferToken)
			}
			fmt.Fprintln(cmd.OutOrStdout())
		}

		if events == nil {
			return nil
		}

		select {
		case e := <-events:
			if err := printEvent(cmd, e); err != nil {
				return err
			}
			return acknowledge(cmd, app, e)
		case <-time.After(purchaseWait):
			return fmt.Errorf("no purchase outcome within %s", purchaseWait)
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		}
	},
}

func applyOutcome(app *cli.App, outcome string) error {
	if outcome == "" {
		return nil
	}
	if app.Sandbox == nil {
		return errors.New("--outcome requires the sandbox billing provider")
	}
	switch outcome {
	case "purchased":
		app.Sandbox.SetNextOutcome(sandbox.OutcomePurchased)
	case "cancelled", "canceled":
		app.Sandbox.SetNextOutcome(sandbox.OutcomeCancelled)
	case "error":
		app.Sandbox.SetNextOutcome(sandbox.OutcomeError(domain.ResponseError, "Sandbox purchase error"))
	default:
		return fmt.Errorf("unknown outcome %q (want purchased, cancelled or error)", outcome)
	}
	return nil
}

// acknowledge marks a granted purchase as acknowledged on the sandbox store.
func acknowledge(cmd *cobra.Command, app *cli.App, e domain.PurchaseEvent) error {
	if !purchaseAcknowledge {
		return nil
	}
	updated, ok := e.(*domain.EntitlementUpdated)
	if !ok {
		return nil
	}
	token := updated.Entitlement.PurchaseToken
	if !app.Sandbox.Acknowledge(token) {
		return fmt.Errorf("purchase token %s not found", token)
	}
	if !outputJSON {
		fmt.Fprintf(cmd.OutOrStdout(), "Acknowledged purchase %s.\n", updated.Entitlement.OrderID)
	}
	return nil
}

func printEvent(cmd *cobra.Command, e domain.PurchaseEvent) error {
	entry := billingService.EntryFor(e)
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), entry)
	}
	switch ev := e.(type) {
	case *domain.EntitlementUpdated:
		fmt.Fprintf(cmd.OutOrStdout(), "%s: order %s, token %s\n", entry.Kind, ev.Entitlement.OrderID, ev.Entitlement.PurchaseToken)
	case *domain.PurchaseFailed:
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", entry.Kind, ev.Message)
	default:
		fmt.Fprintln(cmd.OutOrStdout(), entry.Kind)
	}
	return nil
}

func init() {
	purchaseCmd.Flags().StringVar(&purchaseOffer, "offer", "", "offer token (defaults to the product's first offer)")
	purchaseCmd.Flags().DurationVar(&purchaseWait, "wait", 0, "wait this long for the purchase outcome event")
	purchaseCmd.Flags().StringVar(&purchaseOutcome, "outcome", "", "sandbox only: purchased, cancelled or error")
	purchaseCmd.Flags().BoolVar(&purchaseAcknowledge, "acknowledge", false, "sandbox only: acknowledge the granted purchase (needs --wait)")
}
