package push

import (
	"fmt"

	pushService "github.com/felixgeelhaar/nativebridge/internal/push/application"
	"github.com/spf13/cobra"
)

var loginProof string

var loginCmd = &cobra.Command{
	Use:   "login <external-id>",
	Short: "Log the push identity in as an external user",
	Long: `Log in with an external user id and wait for the provider to assign
an identifier. The optional proof is the identity-verification hash or token
issued by your backend.

Examples:
  bridge push login gardener@example.com
  bridge push login gardener@example.com --proof 3f2a...`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := pushApp()
		if err != nil {
			return err
		}
		externalID := ""
		if len(args) > 0 {
			externalID = args[0]
		}

		res, err := app.Push.Login(cmd.Context(), externalID, loginProof)
		if err != nil {
			return err
		}
		return printIdentifier(cmd, res)
	},
}

var identifierCmd = &cobra.Command{
	Use:   "identifier",
	Short: "Print the push identifier, waiting for initialization",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := pushApp()
		if err != nil {
			return err
		}

		res, err := app.Push.GetIdentifier(cmd.Context())
		if err != nil {
			return err
		}
		return printIdentifier(cmd, res)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log the push identity out",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := pushApp()
		if err != nil {
			return err
		}
		if err := app.Push.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

func printIdentifier(cmd *cobra.Command, res pushService.IdentifierResult) error {
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Identifier: %s\n", res.Identifier)
	if res.ExternalID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "External ID: %s\n", res.ExternalID)
	}
	return nil
}

func init() {
	loginCmd.Flags().StringVar(&loginProof, "proof", "", "identity verification hash or token")
}
