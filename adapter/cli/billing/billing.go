package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/felixgeelhaar/nativebridge/adapter/cli"
	"github.com/spf13/cobra"
)

// Cmd is the billing command group.
var Cmd = &cobra.Command{
	Use:   "billing",
	Short: "Query the catalog and launch purchases",
	Long: `Connect to the billing provider, query products and entitlements,
and launch purchase flows. Purchase outcomes arrive as events.`,
}

var outputJSON bool

func init() {
	Cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print results as JSON")

	Cmd.AddCommand(connectCmd)
	Cmd.AddCommand(disconnectCmd)
	Cmd.AddCommand(statusCmd)
	Cmd.AddCommand(productsCmd)
	Cmd.AddCommand(entitlementsCmd)
	Cmd.AddCommand(purchaseCmd)
	Cmd.AddCommand(eventsCmd)
	Cmd.AddCommand(watchCmd)
}

func billingApp() (*cli.App, error) {
	app := cli.GetApp()
	if app == nil || app.Billing == nil {
		return nil, errors.New("billing service not configured")
	}
	return app, nil
}

// connected connects unless --no-connect was given. Each CLI invocation
// starts with a fresh client, so commands connect on demand.
func connected(cmd *cobra.Command, app *cli.App) error {
	if noConnect {
		return nil
	}
	_, err := app.Billing.Connect(cmd.Context())
	return err
}

var noConnect bool

func init() {
	Cmd.PersistentFlags().BoolVar(&noConnect, "no-connect", false, "do not connect before running the command")
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}
