package search

import (
	"context"
	"net/http"
	"time"
)

// Pinger is anything whose liveness can be checked, typically the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker provides health check capabilities.
type HealthChecker struct {
	store Pinger
}

// NewHealthChecker creates a new health checker.
func NewHealthChecker(store Pinger) *HealthChecker {
	return &HealthChecker{store: store}
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status     string               `json:"status"` // healthy, unhealthy
	Timestamp  time.Time            `json:"timestamp"`
	Version    string               `json:"version,omitempty"`
	Components map[string]Component `json:"components"`
}

// Component represents a component's health.
type Component struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency int64  `json:"latency_ms,omitempty"`
}

// Check performs a full health check.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "healthy",
		Timestamp:  time.Now(),
		Components: make(map[string]Component),
	}

	storeHealth := h.checkStore(ctx)
	status.Components["store"] = storeHealth
	if storeHealth.Status != "healthy" {
		status.Status = "unhealthy"
	}

	// The parser and ranker are pure functions over static dictionaries;
	// if the process is up, they are healthy.
	status.Components["query"] = Component{Status: "healthy"}

	return status
}

func (h *HealthChecker) checkStore(ctx context.Context) Component {
	if h.store == nil {
		return Component{
			Status:  "unhealthy",
			Message: "store not configured",
		}
	}

	start := time.Now()
	err := h.store.Ping(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return Component{
			Status:  "unhealthy",
			Message: err.Error(),
			Latency: latency,
		}
	}

	return Component{
		Status:  "healthy",
		Latency: latency,
	}
}

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	checker *HealthChecker
	version string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(checker *HealthChecker, version string) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		version: version,
	}
}

// HandleHealth handles GET /v1/health
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.checker.Check(ctx)
	status.Version = h.version

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, status)
}
