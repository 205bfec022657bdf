package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/nativebridge/adapter/cli"
	pushApp "github.com/felixgeelhaar/nativebridge/internal/push/application"
)

type loginInput struct {
	ExternalID string `json:"external_id" jsonschema:"required"`
	Proof      string `json:"proof,omitempty"`
	AuthHash   string `json:"auth_hash,omitempty"`
	JWTToken   string `json:"jwt_token,omitempty"`
}

// proof returns the first non-empty of proof, auth_hash and jwt_token.
func (in loginInput) proof() string {
	for _, p := range []string{in.Proof, in.AuthHash, in.JWTToken} {
		if p != "" {
			return p
		}
	}
	return ""
}

type permissionInput struct {
	FallbackToSettings *bool `json:"fallback_to_settings,omitempty"`
}

var errPushUnavailable = errors.New("push service not configured")

type pushTools struct {
	app *cli.App
}

func (t pushTools) service() (*pushApp.Service, error) {
	if t.app == nil || t.app.Push == nil {
		return nil, errPushUnavailable
	}
	return t.app.Push, nil
}

func (t pushTools) login(ctx context.Context, input loginInput) (pushApp.IdentifierResult, error) {
	svc, err := t.service()
	if err != nil {
		return pushApp.IdentifierResult{}, err
	}
	return result(svc.Login(ctx, input.ExternalID, input.proof()))
}

func (t pushTools) getIdentifier(ctx context.Context, _ struct{}) (pushApp.IdentifierResult, error) {
	svc, err := t.service()
	if err != nil {
		return pushApp.IdentifierResult{}, err
	}
	return result(svc.GetIdentifier(ctx))
}

func (t pushTools) logout(ctx context.Context, _ struct{}) (map[string]any, error) {
	svc, err := t.service()
	if err != nil {
		return nil, err
	}
	if err := svc.Logout(ctx); err != nil {
		return nil, toolError(err)
	}
	return map[string]any{"success": true}, nil
}

func (t pushTools) requestPermission(ctx context.Context, input permissionInput) (pushApp.PermissionResult, error) {
	svc, err := t.service()
	if err != nil {
		return pushApp.PermissionResult{}, err
	}
	return result(svc.RequestNotificationPermission(ctx, input.FallbackToSettings))
}

func registerPushTools(srv *mcp.Server, deps ToolDependencies) error {
	tools := pushTools{app: deps.App}
	l, log := deps.Limiter, deps.Logger

	srv.Tool("push.login").
		Description("Log in as an external user and wait for the push identifier. proof may also be given as auth_hash or jwt_token.").
		Handler(limited(l, log, "push.login", tools.login))

	srv.Tool("push.get_identifier").
		Description("Get the push identifier, waiting for the provider to initialize").
		Handler(limited(l, log, "push.get_identifier", tools.getIdentifier))

	srv.Tool("push.logout").
		Description("Log the push identity out").
		Handler(limited(l, log, "push.logout", tools.logout))

	srv.Tool("push.request_permission").
		Description("Request notification permission. fallback_to_settings defaults to true.").
		Handler(limited(l, log, "push.request_permission", tools.requestPermission))

	return nil
}
