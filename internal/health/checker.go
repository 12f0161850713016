// Package health provides the HTTP liveness and readiness endpoints.
package health

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// TransportProbe reports whether the transport layer is able to serve
// requests. The circuit breaker decorator satisfies this.
type TransportProbe interface {
	Healthy() bool
}

// ManagerProbe reports whether the connection orchestrator is running.
type ManagerProbe interface {
	Running() bool
}

// Checker provides health check endpoints
type Checker struct {
	transport TransportProbe
	manager   ManagerProbe
	logger    zerolog.Logger
}

// NewChecker creates a new health checker. transport may be nil when no
// breaker wraps the transport; it is then reported as healthy.
func NewChecker(transport TransportProbe, manager ManagerProbe, logger zerolog.Logger) *Checker {
	return &Checker{
		transport: transport,
		manager:   manager,
		logger:    logger.With().Str("component", "health-checker").Logger(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// HealthHandler returns the overall health status
func (c *Checker) HealthHandler(w http.ResponseWriter, r *http.Request) {
	transportStatus := "healthy"
	if c.transport != nil && !c.transport.Healthy() {
		transportStatus = "unhealthy"
	}

	managerStatus := "healthy"
	if !c.manager.Running() {
		managerStatus = "unhealthy"
	}

	overallStatus := "healthy"
	if transportStatus != "healthy" || managerStatus != "healthy" {
		overallStatus = "degraded"
	}

	response := HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Components: map[string]string{
			"transport": transportStatus,
			"manager":   managerStatus,
		},
	}

	w.Header().Set("Content-Type", "application/json")

	if overallStatus != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(response)
}

// LiveHandler returns 200 if the process is running
func (c *Checker) LiveHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadyHandler returns 200 if the service is ready to accept traffic
func (c *Checker) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	transportReady := c.transport == nil || c.transport.Healthy()
	managerReady := c.manager.Running()

	ready := transportReady && managerReady

	w.Header().Set("Content-Type", "application/json")

	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "not_ready",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"transport": transportReady,
			"manager":   managerReady,
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "ready",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
