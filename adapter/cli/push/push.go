package push

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/felixgeelhaar/nativebridge/adapter/cli"
	"github.com/spf13/cobra"
)

// Cmd is the push identity command group.
var Cmd = &cobra.Command{
	Use:   "push",
	Short: "Manage the push-notification identity",
	Long: `Log the push identity in and out, read the resolved identifier and
request notification permission.`,
}

var outputJSON bool

func init() {
	Cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print results as JSON")

	Cmd.AddCommand(loginCmd)
	Cmd.AddCommand(identifierCmd)
	Cmd.AddCommand(logoutCmd)
	Cmd.AddCommand(permissionCmd)
}

func pushApp() (*cli.App, error) {
	app := cli.GetApp()
	if app == nil || app.Push == nil {
		return nil, errors.New("push service not configured")
	}
	return app, nil
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}
