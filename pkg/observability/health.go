package observability

import (
	"context"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health state of the bridge or one of its parts.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// checkTimeout bounds a single check so one stuck dependency cannot hold the report.
const checkTimeout = 2 * time.Second

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Status    HealthStatus `json:"status"`
	Message   string       `json:"message"`
	Critical  bool         `json:"critical"`
	LatencyMS int64        `json:"latency_ms"`
}

// HealthReport aggregates every registered check.
type HealthReport struct {
	Status    HealthStatus           `json:"status"`
	CheckedAt time.Time              `json:"checked_at"`
	Checks    map[string]CheckResult `json:"checks"`
}

// Names returns the check names in sorted order.
func (r HealthReport) Names() []string {
	names := make([]string, 0, len(r.Checks))
	for name := range r.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type check struct {
	critical bool
	fn       func(ctx context.Context) error
}

// HealthRegistry holds the bridge's health checks. A failing critical check
// makes the bridge unhealthy; a failing optional one only degrades it.
type HealthRegistry struct {
	mu     sync.RWMutex
	checks map[string]check
}

// NewHealthRegistry creates an empty registry.
func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{checks: make(map[string]check)}
}

// Require registers a critical check, e.g. billing readiness.
func (r *HealthRegistry) Require(name string, fn func(ctx context.Context) error) {
	r.register(name, check{critical: true, fn: fn})
}

// Optional registers a check for a dependency the bridge can run without,
// such as an event sink.
func (r *HealthRegistry) Optional(name string, fn func(ctx context.Context) error) {
	r.register(name, check{fn: fn})
}

func (r *HealthRegistry) register(name string, c check) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = c
}

// Report runs every check concurrently and aggregates the results.
func (r *HealthRegistry) Report(ctx context.Context) HealthReport {
	r.mu.RLock()
	checks := make(map[string]check, len(r.checks))
	for name, c := range r.checks {
		checks[name] = c
	}
	r.mu.RUnlock()

	report := HealthReport{
		Status:    HealthStatusHealthy,
		CheckedAt: time.Now().UTC(),
		Checks:    make(map[string]CheckResult, len(checks)),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, c := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := run(ctx, name, c)
			mu.Lock()
			report.Checks[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	for _, result := range report.Checks {
		switch {
		case result.Status == HealthStatusUnhealthy:
			report.Status = HealthStatusUnhealthy
		case result.Status == HealthStatusDegraded && report.Status == HealthStatusHealthy:
			report.Status = HealthStatusDegraded
		}
	}
	return report
}

func run(ctx context.Context, name string, c check) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := c.fn(ctx)
	result := CheckResult{Critical: c.critical, LatencyMS: time.Since(start).Milliseconds()}

	switch {
	case err == nil:
		result.Status = HealthStatusHealthy
		result.Message = name + " ready"
	case c.critical:
		result.Status = HealthStatusUnhealthy
		result.Message = name + " not ready: " + err.Error()
	default:
		result.Status = HealthStatusDegraded
		result.Message = name + " unreachable: " + err.Error()
	}
	return result
}
