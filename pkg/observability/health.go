package observability

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// SchemaStatus reports the state of the loaded linter schema
type SchemaStatus interface {
	IsSchemaLoaded() bool
	SchemaVersion() string
	FallbackActive() bool
}

// PipelineStatus reports the state of the validation pipeline
type PipelineStatus interface {
	IsValidationRunning() bool
}

// HealthChecker provides health check functionality for the lint daemon
type HealthChecker struct {
	schema   SchemaStatus
	pipeline PipelineStatus
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(schema SchemaStatus, pipeline PipelineStatus) *HealthChecker {
	return &HealthChecker{
		schema:   schema,
		pipeline: pipeline,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Liveness returns a simple liveness probe (always returns 200 if the server is running)
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness returns a readiness probe (checks schema and pipeline state)
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	status := h.Check()

	w.Header().Set("Content-Type", "application/json")

	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(status)
}

// Check performs a health check over the schema and pipeline
func (h *HealthChecker) Check() HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Dependencies: make(map[string]DependencyStatus),
	}

	if h.schema != nil {
		schemaStatus := DependencyStatus{Status: StatusHealthy}
		if !h.schema.IsSchemaLoaded() {
			schemaStatus.Status = StatusUnhealthy
			schemaStatus.Message = "no schema loaded"
			status.Status = StatusUnhealthy
		} else if h.schema.FallbackActive() {
			// Fallback schema still validates, but the configured schema failed to load
			schemaStatus.Status = StatusDegraded
			schemaStatus.Message = "custom schema failed to load, default schema active"
			if status.Status != StatusUnhealthy {
				status.Status = StatusDegraded
			}
		} else {
			schemaStatus.Message = "schema " + h.schema.SchemaVersion()
		}
		status.Dependencies["schema"] = schemaStatus
	}

	if h.pipeline != nil {
		pipelineStatus := DependencyStatus{Status: StatusHealthy}
		if h.pipeline.IsValidationRunning() {
			pipelineStatus.Message = "validation in progress"
		}
		status.Dependencies["pipeline"] = pipelineStatus
	}

	return status
}

// RegisterHealthRoutes registers health check endpoints
func RegisterHealthRoutes(router *mux.Router, checker *HealthChecker) {
	router.HandleFunc("/health", checker.Readiness)
	router.HandleFunc("/health/live", checker.Liveness)
	router.HandleFunc("/health/ready", checker.Readiness)
}
