// Package sandbox provides an in-memory billing provider for development and
// tests. It behaves like a device store: setup completes after a delay,
// purchases complete asynchronously through the listener, and the service can
// be made to drop its connection.
package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/nativebridge/internal/billing/domain"
	"github.com/google/uuid"
)

// Outcome decides how a launched purchase flow ends.
type Outcome struct {
	Code         domain.ResponseCode
	DebugMessage string
}

// Predefined outcomes.
var (
	OutcomePurchased = Outcome{Code: domain.ResponseOK}
	OutcomeCancelled = Outcome{Code: domain.ResponseUserCanceled, DebugMessage: "User canceled the purchase flow"}
)

// OutcomeError ends the flow with a provider error.
func OutcomeError(code domain.ResponseCode, message string) Outcome {
	return Outcome{Code: code, DebugMessage: message}
}

// Config configures the sandbox client.
type Config struct {
	Catalog     []domain.Product
	PackageName string
	SetupDelay  time.Duration
	SetupResult domain.BillingResult
	FlowDelay   time.Duration
	Outcome     Outcome
}

// Client is the in-memory billing provider.
type Client struct {
	mu        sync.Mutex
	cfg       Config
	listener  domain.Listener
	connected bool
	owned     []domain.Entitlement
	next      *Outcome
	orders    int
	logger    *slog.Logger
	wg        sync.WaitGroup
}

var _ domain.Client = (*Client)(nil)

// NewClient creates a sandbox client. An empty catalog selects the built-in one.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Catalog == nil {
		cfg.Catalog = DefaultCatalog()
	}
	if cfg.PackageName == "" {
		cfg.PackageName = "dev.nativebridge.sandbox"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, logger: logger.With("provider", "billing-sandbox")}
}

func (c *Client) SetListener(l domain.Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = l
}

func (c *Client) StartConnection(ctx context.Context) domain.BillingResult {
	if c.cfg.SetupDelay > 0 {
		select {
		case <-time.After(c.cfg.SetupDelay):
		case <-ctx.Done():
			return domain.Result(domain.ResponseServiceDisconnected, ctx.Err().Error())
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	result := c.cfg.SetupResult
	if result.OK() {
		c.connected = true
	}
	return result
}

func (c *Client) EndConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

func (c *Client) QueryProducts(ctx context.Context, productIDs []string) (domain.BillingResult, []domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return domain.Result(domain.ResponseServiceDisconnected, "Billing service disconnected"), nil
	}

	wanted := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	products := make([]domain.Product, 0, len(productIDs))
	for _, p := range c.cfg.Catalog {
		if wanted[p.ProductID] {
			products = append(products, p)
		}
	}
	return domain.Result(domain.ResponseOK, ""), products
}

func (c *Client) QueryPurchases(ctx context.Context) (domain.BillingResult, []domain.Entitlement) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return domain.Result(domain.ResponseServiceDisconnected, "Billing service disconnected"), nil
	}
	owned := make([]domain.Entitlement, len(c.owned))
	copy(owned, c.owned)
	return domain.Result(domain.ResponseOK, ""), owned
}

func (c *Client) LaunchBillingFlow(ctx context.Context, params domain.FlowParams) domain.BillingResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return domain.Result(domain.ResponseServiceDisconnected, "Billing service disconnected")
	}

	product, ok := c.product(params.ProductID)
	if !ok {
		return domain.Result(domain.ResponseItemUnavailable, fmt.Sprintf("Item %s is not available", params.ProductID))
	}
	if len(product.Offers) > 0 {
		if _, ok := product.OfferByToken(params.OfferToken); !ok {
			return domain.Result(domain.ResponseDeveloperError, "Invalid offer token")
		}
	}
	for _, e := range c.owned {
		if e.Grants(product.ProductID) && e.IsActive() {
			return domain.Result(domain.ResponseItemAlreadyOwned, "Item is already owned.")
		}
	}

	outcome := c.cfg.Outcome
	if c.next != nil {
		outcome = *c.next
		c.next = nil
	}

	var completion func()
	if outcome.Code == domain.ResponseOK {
		c.orders++
		ent := domain.Entitlement{
			OrderID:       fmt.Sprintf("GPA.SANDBOX-%04d", c.orders),
			PackageName:   c.cfg.PackageName,
			PurchaseToken: uuid.NewString(),
			PurchaseTime:  time.Now().UTC(),
			State:         domain.PurchaseStatePurchased,
			AutoRenewing:  len(product.Offers) > 0,
			ProductIDs:    []string{product.ProductID},
		}
		completion = func() {
			c.mu.Lock()
			c.owned = append(c.owned, ent)
			c.mu.Unlock()
			c.notify(domain.Result(domain.ResponseOK, ""), []domain.Entitlement{ent})
		}
	} else {
		completion = func() {
			c.notify(domain.Result(outcome.Code, outcome.DebugMessage), nil)
		}
	}

	c.logger.Debug("purchase flow launched", "product_id", product.ProductID, "offer_token", params.OfferToken)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if c.cfg.FlowDelay > 0 {
			time.Sleep(c.cfg.FlowDelay)
		}
		completion()
	}()
	return domain.Result(domain.ResponseOK, "")
}

// SetNextOutcome overrides how the next launched flow ends.
func (c *Client) SetNextOutcome(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = &o
}

// Acknowledge marks the purchase with token as acknowledged.
func (c *Client) Acknowledge(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.owned {
		if c.owned[i].PurchaseToken == token {
			c.owned[i].Acknowledged = true
			return true
		}
	}
	return false
}

// SimulateDisconnect drops the connection and tells the listener.
func (c *Client) SimulateDisconnect() {
	c.mu.Lock()
	c.connected = false
	l := c.listener
	c.mu.Unlock()
	if l != nil {
		l.OnServiceDisconnected()
	}
}

// Wait blocks until every launched flow has completed.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) notify(result domain.BillingResult, purchases []domain.Entitlement) {
	c.mu.Lock()
	l := c.listener
	c.mu.Unlock()
	if l != nil {
		l.OnPurchasesUpdated(result, purchases)
	}
}

func (c *Client) product(id string) (domain.Product, bool) {
	for _, p := range c.cfg.Catalog {
		if p.ProductID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}
