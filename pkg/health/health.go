// Package health serves liveness and readiness probes for the board daemon
// and the interactive client.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// HealthCheck defines the interface for individual health checks
type HealthCheck interface {
	// Name returns the unique name of this health check
	Name() string
	// Check performs the health check and returns an error if unhealthy
	Check(ctx context.Context) error
}

// HealthStatus represents the overall health status of the application.
type HealthStatus struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth represents the health status of an individual component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker manages and executes health checks
type HealthChecker struct {
	checks map[string]HealthCheck
	mu     sync.RWMutex
}

// NewHealthChecker creates a new health checker instance.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]HealthCheck),
	}
}

// AddCheck registers a health check, replacing any check with the same name
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

// RemoveCheck removes a health check by name.
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// CheckHealth executes all registered health checks and returns the aggregated status.
// The overall status is "healthy" only if all individual checks pass.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := HealthStatus{
		Status: "healthy",
		Checks: make(map[string]ComponentHealth),
	}

	for name, check := range hc.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = "unhealthy"
			status.Checks[name] = ComponentHealth{
				Status:  "unhealthy",
				Message: err.Error(),
			}
		} else {
			status.Checks[name] = ComponentHealth{
				Status: "healthy",
			}
		}
	}

	return status
}

// LivenessHandler answers 200 while the process can serve requests
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := map[string]string{"status": "alive"}
	json.NewEncoder(w).Encode(response)
}

// ReadinessHandler runs every check and answers 200 when all pass, 503
// otherwise
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := hc.CheckHealth(ctx)

	w.Header().Set("Content-Type", "application/json")

	if health.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(health)
}

// Handler routes /health and /ready
func (hc *HealthChecker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", hc.LivenessHandler)
	mux.HandleFunc("/ready", hc.ReadinessHandler)
	return mux
}

// Serve runs the probe endpoints on addr until ctx is cancelled
func (hc *HealthChecker) Serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           hc.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("health server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("health server shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// RunningHealthCheck fails while a component reports it is not running
type RunningHealthCheck struct {
	name    string
	running func() bool
}

// NewRunningHealthCheck creates a check named name backed by running
func NewRunningHealthCheck(name string, running func() bool) *RunningHealthCheck {
	return &RunningHealthCheck{
		name:    name,
		running: running,
	}
}

// Name returns the name of this health check.
func (c *RunningHealthCheck) Name() string {
	return c.name
}

// Check verifies that the component is running
func (c *RunningHealthCheck) Check(ctx context.Context) error {
	if !c.running() {
		return fmt.Errorf("%s is not running", c.name)
	}
	return nil
}

// NetworkHealthCheck implements HealthCheck for the impulse listener
type NetworkHealthCheck struct {
	listenerAddr func() string
}

// NewNetworkHealthCheck creates a health check for network connectivity.
func NewNetworkHealthCheck(listenerAddr func() string) *NetworkHealthCheck {
	return &NetworkHealthCheck{
		listenerAddr: listenerAddr,
	}
}

// Name returns the name of this health check.
func (n *NetworkHealthCheck) Name() string {
	return "network"
}

// Check verifies that the network listener is active.
func (n *NetworkHealthCheck) Check(ctx context.Context) error {
	addr := n.listenerAddr()
	if addr == "" {
		return fmt.Errorf("network listener is not active")
	}
	return nil
}

// BreakerHealthCheck fails while a circuit breaker is open. Half-open counts
// as healthy since the breaker is probing.
type BreakerHealthCheck struct {
	state func() gobreaker.State
}

// NewBreakerHealthCheck creates a check over a breaker's state
func NewBreakerHealthCheck(state func() gobreaker.State) *BreakerHealthCheck {
	return &BreakerHealthCheck{state: state}
}

// Name returns the name of this health check.
func (b *BreakerHealthCheck) Name() string {
	return "circuit_breaker"
}

// Check verifies that the breaker is not open
func (b *BreakerHealthCheck) Check(ctx context.Context) error {
	if s := b.state(); s == gobreaker.StateOpen {
		return fmt.Errorf("circuit breaker is %s", s)
	}
	return nil
}

// RopeHealthCheck fails when the rope holds non-finite positions or a
// segment has stretched beyond tolerance
type RopeHealthCheck struct {
	finite    func() bool
	stretch   func() float64
	tolerance float64
}

// NewRopeHealthCheck creates a rope integrity check. tolerance is in world
// units; zero or less disables the stretch test.
func NewRopeHealthCheck(finite func() bool, stretch func() float64, tolerance float64) *RopeHealthCheck {
	return &RopeHealthCheck{finite: finite, stretch: stretch, tolerance: tolerance}
}

// Name returns the name of this health check.
func (r *RopeHealthCheck) Name() string {
	return "rope"
}

// Check verifies the rope state
func (r *RopeHealthCheck) Check(ctx context.Context) error {
	if !r.finite() {
		return fmt.Errorf("rope has non-finite positions")
	}
	if r.tolerance > 0 {
		if s := r.stretch(); s > r.tolerance || math.IsNaN(s) {
			return fmt.Errorf("rope stretch %.4f exceeds tolerance %.4f", s, r.tolerance)
		}
	}
	return nil
}

// MemoryHealthCheck implements HealthCheck for memory usage monitoring.
type MemoryHealthCheck struct {
	maxMemoryMB    int64
	getMemoryUsage func() int64
}

// NewMemoryHealthCheck creates a health check for memory usage.
func NewMemoryHealthCheck(maxMemoryMB int64, getMemoryUsage func() int64) *MemoryHealthCheck {
	return &MemoryHealthCheck{
		maxMemoryMB:    maxMemoryMB,
		getMemoryUsage: getMemoryUsage,
	}
}

// Name returns the name of this health check.
func (m *MemoryHealthCheck) Name() string {
	return "memory"
}

// Check verifies that memory usage is within acceptable limits.
func (m *MemoryHealthCheck) Check(ctx context.Context) error {
	currentMB := m.getMemoryUsage()
	if currentMB > m.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, m.maxMemoryMB)
	}
	return nil
}

// CurrentMemoryMB returns the live heap in megabytes
func CurrentMemoryMB() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.Alloc / 1024 / 1024)
}
