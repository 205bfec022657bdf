package billing

import (
	"fmt"

	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to the billing provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := billingApp()
		if err != nil {
			return err
		}

		res, err := app.Billing.Connect(cmd.Context())
		if err != nil {
			return err
		}
		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Release the billing client",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := billingApp()
		if err != nil {
			return err
		}
		if err := app.Billing.Disconnect(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Disconnected.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the connection state",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := billingApp()
		if err != nil {
			return err
		}

		st, err := app.Billing.Status(cmd.Context())
		if err != nil {
			return err
		}
		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), st)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "State: %s\n", st.State)
		fmt.Fprintf(cmd.OutOrStdout(), "Ready: %t\n", st.Ready)
		if st.LastError != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Last error: %s\n", st.LastError)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Subscribers: %d\n", st.Subscribers)
		return nil
	},
}
