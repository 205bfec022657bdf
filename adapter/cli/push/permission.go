package push

import (
	"fmt"

	"github.com/spf13/cobra"
)

var fallbackToSettings bool

var permissionCmd = &cobra.Command{
	Use:   "permission",
	Short: "Request notification permission",
	Long: `Request notification permission. When permission is already granted
no prompt is shown. If the prompt cannot be shown, the provider may fall back
to the system settings screen unless --fallback-to-settings=false.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := pushApp()
		if err != nil {
			return err
		}

		var fallback *bool
		if cmd.Flags().Changed("fallback-to-settings") {
			fallback = &fallbackToSettings
		}

		res, err := app.Push.RequestNotificationPermission(cmd.Context(), fallback)
		if err != nil {
			return err
		}
		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		if res.Granted {
			fmt.Fprintln(cmd.OutOrStdout(), "Notification permission granted.")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Notification permission denied.")
		}
		return nil
	},
}

func init() {
	permissionCmd.Flags().BoolVar(&fallbackToSettings, "fallback-to-settings", true, "open system settings when the prompt cannot be shown")
}
