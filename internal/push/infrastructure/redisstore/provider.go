// Package redisstore reads push identity from Redis, where a device agent or
// backend records it once the push SDK has registered the installation.
//
// Each installation is a hash at bridge:push:{installation} with the fields
// user_id, subscription_id, external_id, proof, permission and
// permission_requested.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/felixgeelhaar/nativebridge/internal/push/domain"
	"github.com/redis/go-redis/v9"
)

const (
	fieldUserID              = "user_id"
	fieldSubscriptionID      = "subscription_id"
	fieldExternalID          = "external_id"
	fieldProof               = "proof"
	fieldPermission          = "permission"
	fieldPermissionRequested = "permission_requested"
	fieldUpdatedAt           = "updated_at"

	permissionGranted = "granted"
)

// Provider is a Redis-backed push-identity provider.
type Provider struct {
	client         *redis.Client
	installationID string
}

var _ domain.Provider = (*Provider)(nil)

// NewProvider creates a provider for installationID.
func NewProvider(client *redis.Client, installationID string) (*Provider, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if installationID == "" {
		return nil, errors.New("installation id is required")
	}
	return &Provider{client: client, installationID: installationID}, nil
}

func (p *Provider) key() string {
	return fmt.Sprintf("bridge:push:%s", p.installationID)
}

// Login records the external id. The user id is cleared until the push
// service assigns one for the new identity.
func (p *Provider) Login(ctx context.Context, externalID, proof string) error {
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, p.key(),
			fieldExternalID, externalID,
			fieldProof, proof,
			fieldUpdatedAt, time.Now().UTC().Format(time.RFC3339),
		)
		pipe.HDel(ctx, p.key(), fieldUserID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

func (p *Provider) Logout(ctx context.Context) error {
	if err := p.client.HDel(ctx, p.key(), fieldExternalID, fieldProof, fieldUserID).Err(); err != nil {
		return fmt.Errorf("failed to record logout: %w", err)
	}
	return nil
}

func (p *Provider) Identity(ctx context.Context) (domain.Identity, error) {
	values, err := p.client.HMGet(ctx, p.key(), fieldUserID, fieldSubscriptionID).Result()
	if err != nil {
		return domain.Identity{}, fmt.Errorf("failed to read identity: %w", err)
	}
	return domain.Identity{
		UserID:         stringValue(values[0]),
		SubscriptionID: stringValue(values[1]),
	}, nil
}

func (p *Provider) PermissionGranted(ctx context.Context) (bool, error) {
	value, err := p.client.HGet(ctx, p.key(), fieldPermission).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read permission: %w", err)
	}
	return value == permissionGranted, nil
}

// RequestPermission records the request for the device agent and reports the
// permission currently on record.
func (p *Provider) RequestPermission(ctx context.Context, fallbackToSettings bool) (bool, error) {
	if err := p.client.HSet(ctx, p.key(), fieldPermissionRequested, strconv.FormatBool(fallbackToSettings)).Err(); err != nil {
		return false, fmt.Errorf("failed to request permission: %w", err)
	}
	return p.PermissionGranted(ctx)
}

// Ping checks the Redis connection.
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
