package cli

import (
	"context"

	bridgeApp "github.com/felixgeelhaar/nativebridge/internal/app"
	billingApp "github.com/felixgeelhaar/nativebridge/internal/billing/application"
	billingSandbox "github.com/felixgeelhaar/nativebridge/internal/billing/infrastructure/sandbox"
	pushApp "github.com/felixgeelhaar/nativebridge/internal/push/application"
	"github.com/felixgeelhaar/nativebridge/pkg/observability"
)

// App holds the CLI application dependencies.
type App struct {
	// Billing
	Billing *billingApp.Service

	// Sandbox controls, nil when a real provider is wired
	Sandbox *billingSandbox.Client

	// Push identity
	Push *pushApp.Service

	// Health checks for the wired infrastructure
	Health *observability.HealthRegistry

	// Diagnostics reports in-flight requests and keep-alive holders.
	Diagnostics func(ctx context.Context) (bridgeApp.Diagnostics, error)
}

// NewApp creates a new CLI application with the provided services.
func NewApp(billing *billingApp.Service, push *pushApp.Service) *App {
	return &App{
		Billing: billing,
		Push:    push,
	}
}

// NewAppFromContainer creates a CLI application backed by the container.
func NewAppFromContainer(c *bridgeApp.Container) *App {
	a := NewApp(c.Billing, c.Push)
	a.SetSandbox(c.BillingSandbox)
	a.SetHealth(c.Health)
	a.SetDiagnostics(c.Diagnostics)
	return a
}

// SetSandbox exposes the sandbox billing controls.
func (a *App) SetSandbox(sandbox *billingSandbox.Client) {
	a.Sandbox = sandbox
}

// SetHealth updates the health registry.
func (a *App) SetHealth(health *observability.HealthRegistry) {
	a.Health = health
}

// SetDiagnostics updates the diagnostics source.
func (a *App) SetDiagnostics(fn func(ctx context.Context) (bridgeApp.Diagnostics, error)) {
	a.Diagnostics = fn
}

var app *App

// SetApp sets the global app instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global app instance.
func GetApp() *App {
	return app
}
