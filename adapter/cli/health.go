package cli

import (
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/nativebridge/pkg/observability"
	"github.com/spf13/cobra"
)

var (
	healthJSON    bool
	healthConnect bool
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run the bridge health checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Health == nil {
			return fmt.Errorf("app not initialized")
		}

		if healthConnect && app.Billing != nil {
			if _, err := app.Billing.Connect(cmd.Context()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "billing connect failed: %v\n", err)
			}
		}

		overall := app.Health.Report(cmd.Context())
		if healthJSON {
			data, err := json.Marshal(overall)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "status: %s\n", overall.Status)
		for _, name := range overall.Names() {
			check := overall.Checks[name]
			fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %-9s %s\n", name, check.Status, check.Message)
		}
		if overall.Status == observability.HealthStatusUnhealthy {
			return fmt.Errorf("bridge is %s", overall.Status)
		}
		return nil
	},
}

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics",
	Short: "Show billing state and in-flight requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Diagnostics == nil {
			return fmt.Errorf("app not initialized")
		}

		d, err := app.Diagnostics(cmd.Context())
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "print the report as JSON")
	healthCmd.Flags().BoolVar(&healthConnect, "connect", false, "connect billing before checking")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(diagnosticsCmd)
}
