package push

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/nativebridge/adapter/cli"
	"github.com/felixgeelhaar/nativebridge/internal/app/apptest"
	pushService "github.com/felixgeelhaar/nativebridge/internal/push/application"
	sharedDomain "github.com/felixgeelhaar/nativebridge/internal/shared/domain"
	"github.com/felixgeelhaar/nativebridge/pkg/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetFlags() {
	outputJSON = false
	loginProof = ""
	fallbackToSettings = true
}

func setupApp(t *testing.T, mutate ...func(*config.Config)) *cli.App {
	t.Helper()
	resetFlags()
	a := cli.NewAppFromContainer(apptest.NewContainer(t, mutate...))
	cli.SetApp(a)
	t.Cleanup(func() { cli.SetApp(nil) })
	return a
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var output strings.Builder
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	cmd.SetContext(ctx)
	cmd.SetOut(&output)
	err := cmd.RunE(cmd, args)
	return output.String(), err
}

func TestPushCommands_NoApp(t *testing.T) {
	resetFlags()
	cli.SetApp(nil)

	for _, cmd := range []*cobra.Command{loginCmd, identifierCmd, logoutCmd, permissionCmd} {
		_, err := run(t, cmd)
		assert.EqualError(t, err, "push service not configured", cmd.Name())
	}
}

func TestIdentifier_FallsBackToInstallation(t *testing.T) {
	setupApp(t)

	out, err := run(t, identifierCmd)
	require.NoError(t, err)
	assert.Equal(t, "Identifier: install-test\n", out)
}

func TestLogin_EchoesExternalID(t *testing.T) {
	setupApp(t)
	outputJSON = true
	loginProof = "hash-1"

	out, err := run(t, loginCmd, "gardener@example.com")
	require.NoError(t, err)

	var res pushService.IdentifierResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "gardener@example.com", res.ExternalID)
	assert.NotEmpty(t, res.Identifier)
	assert.NotEqual(t, "install-test", res.Identifier)
}

func TestLogin_RequiresExternalID(t *testing.T) {
	setupApp(t)

	_, err := run(t, loginCmd)
	assert.ErrorIs(t, err, sharedDomain.ErrValidation)
}

func TestIdentifier_TimesOut(t *testing.T) {
	setupApp(t, func(cfg *config.Config) {
		cfg.SandboxIdentityReadyAfter = 100
		cfg.IdentifierMaxAttempts = 3
	})

	_, err := run(t, identifierCmd)
	require.ErrorIs(t, err, sharedDomain.ErrTimeout)
	assert.Equal(t, "identifier not available after waiting for initialization", err.Error())
}

func TestLogout(t *testing.T) {
	setupApp(t)

	out, err := run(t, logoutCmd)
	require.NoError(t, err)
	assert.Equal(t, "Logged out.\n", out)
}

func TestPermission(t *testing.T) {
	setupApp(t)

	out, err := run(t, permissionCmd)
	require.NoError(t, err)
	assert.Equal(t, "Notification permission granted.\n", out)
}
