// Package sandbox provides an in-memory push-identity provider whose
// identifier only becomes available after a number of reads, like a device
// SDK that is still initializing.
package sandbox

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/nativebridge/internal/push/domain"
	"github.com/google/uuid"
)

// namespace for deterministic user ids derived from external ids.
var userNamespace = uuid.MustParse("6f1c1d52-6a51-4f3b-9a57-0c2b8f5f0b61")

// Config configures the sandbox provider.
type Config struct {
	// InstallationID is reported as the push subscription id.
	InstallationID string
	// ReadyAfter is how many identity reads return nothing after start, login
	// or logout.
	ReadyAfter int
	// Granted is the initial notification permission.
	Granted bool
	// GrantOnPrompt is the answer given when permission is requested.
	GrantOnPrompt bool
}

// Provider is the in-memory push-identity provider.
type Provider struct {
	mu         sync.Mutex
	cfg        Config
	externalID string
	proof      string
	userID     string
	pending    int
	granted    bool
	prompts    int
}

var _ domain.Provider = (*Provider)(nil)

// NewProvider creates a sandbox provider.
func NewProvider(cfg Config) *Provider {
	if cfg.InstallationID == "" {
		cfg.InstallationID = uuid.NewString()
	}
	return &Provider{cfg: cfg, pending: cfg.ReadyAfter, granted: cfg.Granted}
}

func (p *Provider) Login(ctx context.Context, externalID, proof string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.externalID = externalID
	p.proof = proof
	p.userID = uuid.NewSHA1(userNamespace, []byte(externalID)).String()
	p.pending = p.cfg.ReadyAfter
	return nil
}

func (p *Provider) Logout(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.externalID = ""
	p.proof = ""
	p.userID = uuid.NewString()
	p.pending = p.cfg.ReadyAfter
	return nil
}

func (p *Provider) Identity(ctx context.Context) (domain.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending > 0 {
		p.pending--
		return domain.Identity{}, nil
	}
	return domain.Identity{UserID: p.userID, SubscriptionID: p.cfg.InstallationID}, nil
}

func (p *Provider) PermissionGranted(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.granted, nil
}

func (p *Provider) RequestPermission(ctx context.Context, fallbackToSettings bool) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts++
	p.granted = p.cfg.GrantOnPrompt
	return p.granted, nil
}

// ExternalID returns the id of the logged-in user.
func (p *Provider) ExternalID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.externalID
}

// Prompts returns how many times permission was requested.
func (p *Provider) Prompts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prompts
}
