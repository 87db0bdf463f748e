package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opd-ai/go-slingrope/pkg/config"
	"github.com/opd-ai/go-slingrope/pkg/engine"
	"github.com/opd-ai/go-slingrope/pkg/entity"
	"github.com/opd-ai/go-slingrope/pkg/input"
	"github.com/opd-ai/go-slingrope/pkg/logging"
	"github.com/opd-ai/go-slingrope/pkg/network"
)

// TestHealthCheckIntegration wires the checks to a real impulse server and
// simulation
func TestHealthCheckIntegration(t *testing.T) {
	cfg := config.DefaultConfig()
	board := entity.NewSkateboard(1, cfg.Skateboard.Position, cfg.Skateboard.Mass, cfg.Skateboard.Inertia)
	server := network.NewImpulseServer(board, cfg.Network, nil, logging.Discard())

	sim, err := engine.NewSimulation(cfg, input.NewPointer(), board, nil, engine.WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("NewSimulation() error = %v", err)
	}

	healthChecker := NewHealthChecker()
	healthChecker.AddCheck(NewRunningHealthCheck("simulation", sim.Running))
	healthChecker.AddCheck(NewNetworkHealthCheck(server.GetListenerAddress))
	healthChecker.AddCheck(NewRopeHealthCheck(sim.RopeFinite, sim.MaxStretchError, cfg.Rope.SegmentLength))

	t.Run("health checks before start", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		health := healthChecker.CheckHealth(ctx)

		if health.Checks["simulation"].Status != "unhealthy" {
			t.Error("Simulation should be unhealthy before start")
		}
		if health.Checks["network"].Status != "unhealthy" {
			t.Error("Network should be unhealthy before the server listens")
		}
		if health.Checks["rope"].Status != "healthy" {
			t.Errorf("Resting rope should be healthy, got: %s", health.Checks["rope"].Message)
		}
		if health.Status != "unhealthy" {
			t.Error("Overall status should be unhealthy before start")
		}
	})

	if err := server.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Failed to start test server: %v", err)
	}
	defer server.Stop()
	sim.Start()
	defer sim.Stop()
	for i := 0; i < 10; i++ {
		sim.Frame(cfg.TimeStep())
	}

	t.Run("health checks after start", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		health := healthChecker.CheckHealth(ctx)

		for _, name := range []string{"simulation", "network", "rope"} {
			if health.Checks[name].Status != "healthy" {
				t.Errorf("%s should be healthy after start, got: %s", name, health.Checks[name].Message)
			}
		}
		if health.Status != "healthy" {
			t.Errorf("Overall status should be healthy after start, got: %s", health.Status)
		}
	})

	t.Run("liveness endpoint", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		healthChecker.LivenessHandler(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status code %d, got %d", http.StatusOK, w.Code)
		}

		var response map[string]string
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if response["status"] != "alive" {
			t.Errorf("Expected status 'alive', got %s", response["status"])
		}
	})

	t.Run("readiness endpoint", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ready", nil)
		w := httptest.NewRecorder()

		healthChecker.ReadinessHandler(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status code %d, got %d", http.StatusOK, w.Code)
		}

		var response HealthStatus
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if response.Status != "healthy" {
			t.Errorf("Expected status 'healthy', got %s", response.Status)
		}
	})
}

// TestHealthCheckWithFailures tests health check behavior when components fail
func TestHealthCheckWithFailures(t *testing.T) {
	healthChecker := NewHealthChecker()

	// Add a check that will fail
	failingCheck := &mockHealthCheck{
		name:    "failing_component",
		healthy: false,
		err:     fmt.Errorf("component is down"),
	}

	healthChecker.AddCheck(failingCheck)

	t.Run("readiness endpoint with failures", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ready", nil)
		w := httptest.NewRecorder()

		healthChecker.ReadinessHandler(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status code %d, got %d", http.StatusServiceUnavailable, w.Code)
		}

		var response HealthStatus
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if response.Status != "unhealthy" {
			t.Errorf("Expected status 'unhealthy', got %s", response.Status)
		}

		if response.Checks["failing_component"].Status != "unhealthy" {
			t.Error("Failing component should be marked as unhealthy")
		}

		if response.Checks["failing_component"].Message == "" {
			t.Error("Failing component should have an error message")
		}
	})
}

// TestMemoryHealthCheckIntegration tests memory health check with real memory stats
func TestMemoryHealthCheckIntegration(t *testing.T) {
	healthChecker := NewHealthChecker()

	// Add memory check with very high limit (should pass)
	memoryCheck := NewMemoryHealthCheck(10000, CurrentMemoryMB) // 10GB limit
	healthChecker.AddCheck(memoryCheck)

	t.Run("memory check with high limit", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		health := healthChecker.CheckHealth(ctx)

		if health.Checks["memory"].Status != "healthy" {
			t.Errorf("Memory check should be healthy with high limit, got: %s",
				health.Checks["memory"].Message)
		}
	})

	// Remove the previous check and add one with very low limit (should fail)
	healthChecker.RemoveCheck("memory")

	// Use a mock function that returns high memory usage
	mockHighMemory := func() int64 { return 100 }              // 100MB usage
	lowMemoryCheck := NewMemoryHealthCheck(50, mockHighMemory) // 50MB limit
	healthChecker.AddCheck(lowMemoryCheck)

	t.Run("memory check with low limit", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		health := healthChecker.CheckHealth(ctx)

		if health.Checks["memory"].Status != "unhealthy" {
			t.Error("Memory check should be unhealthy with low limit")
		}

		if health.Status != "unhealthy" {
			t.Error("Overall status should be unhealthy due to memory limit")
		}
	})
}
