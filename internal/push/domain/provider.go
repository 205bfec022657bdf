// Package domain defines the push-identity provider port.
package domain

import "context"

// Identity is what the provider currently knows about this installation.
type Identity struct {
	UserID         string
	SubscriptionID string
}

// Identifier returns the provider user id, falling back to the push
// subscription id while the user id has not been assigned yet.
func (i Identity) Identifier() string {
	if i.UserID != "" {
		return i.UserID
	}
	return i.SubscriptionID
}

// Provider is the external push-identity service. Identity is eventually
// populated after the provider finishes its own initialization.
type Provider interface {
	Login(ctx context.Context, externalID, proof string) error
	Logout(ctx context.Context) error
	Identity(ctx context.Context) (Identity, error)
	PermissionGranted(ctx context.Context) (bool, error)
	RequestPermission(ctx context.Context, fallbackToSettings bool) (bool, error)
}
