package billing

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var productsCmd = &cobra.Command{
	Use:   "products <product-id>...",
	Short: "Query product details",
	Long: `Query the provider for the given product ids. Unknown ids are omitted
from the result.

Examples:
  bridge billing products premium_monthly premium_yearly
  bridge billing products premium_monthly,coins_100 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := billingApp()
		if err != nil {
			return err
		}
		if err := connected(cmd, app); err != nil {
			return err
		}

		products, err := app.Billing.QueryProducts(cmd.Context(), splitIDs(args))
		if err != nil {
			return err
		}
		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), products)
		}
		if len(products) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No matching products.")
			return nil
		}

		for _, p := range products {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", p.ProductID, p.Title)
			for _, o := range p.Offers {
				price := ""
				if len(o.PricingPhases) > 0 {
					last := o.PricingPhases[len(o.PricingPhases)-1]
					price = fmt.Sprintf("%s/%s", last.FormattedPrice, last.BillingPeriod)
				}
				trial := ""
				if o.HasFreeTrial() {
					trial = " (free trial)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  offer %s  %s%s\n", o.OfferToken, price, trial)
			}
		}
		return nil
	},
}

var entitlementsCmd = &cobra.Command{
	Use:   "entitlements",
	Short: "List owned purchases",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := billingApp()
		if err != nil {
			return err
		}
		if err := connected(cmd, app); err != nil {
			return err
		}

		entitlements, err := app.Billing.QueryEntitlements(cmd.Context())
		if err != nil {
			return err
		}
		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), entitlements)
		}
		if len(entitlements) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No entitlements.")
			return nil
		}

		for _, e := range entitlements {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  acknowledged=%t auto_renewing=%t\n",
				e.OrderID, strings.Join(e.ProductIDs, ","), e.State, e.Acknowledged, e.AutoRenewing)
		}
		return nil
	},
}

// splitIDs accepts ids as separate arguments or comma separated.
func splitIDs(args []string) []string {
	var ids []string
	for _, arg := range args {
		for _, id := range strings.Split(arg, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
