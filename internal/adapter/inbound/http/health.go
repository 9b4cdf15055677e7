package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/volview-xnat/volviewd/internal/adapter/outbound/memory"
	"github.com/volview-xnat/volviewd/internal/adapter/outbound/state"
	"github.com/volview-xnat/volviewd/internal/domain/imaging"
)

// healthCheckTimeout bounds the backend probes of one health request.
const healthCheckTimeout = 2 * time.Second

// HealthResponse is the JSON response from the /health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`            // "healthy" or "unhealthy"
	Checks  map[string]string `json:"checks"`            // Component check results
	Version string            `json:"version,omitempty"` // Optional version info
}

// pinger is implemented by session backends with an external connection.
type pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker verifies component health.
type HealthChecker struct {
	stateStore *state.FileStateStore
	authStore  *memory.AuthStore
	sessions   imaging.SessionWriter
	version    string
}

// NewHealthChecker creates a HealthChecker with optional components.
// Pass nil for components that aren't available.
func NewHealthChecker(
	stateStore *state.FileStateStore,
	authStore *memory.AuthStore,
	sessions imaging.SessionWriter,
	version string,
) *HealthChecker {
	return &HealthChecker{
		stateStore: stateStore,
		authStore:  authStore,
		sessions:   sessions,
		version:    version,
	}
}

// Check performs health checks on all components.
func (h *HealthChecker) Check(ctx context.Context) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	healthy := true

	switch {
	case h.stateStore == nil:
		checks["state"] = "not configured"
	case !h.stateStore.Exists():
		// Created on the first settings update.
		checks["state"] = "ok: not created"
	default:
		if _, err := h.stateStore.Load(); err != nil {
			checks["state"] = "error: " + err.Error()
			healthy = false
		} else {
			checks["state"] = "ok"
		}
	}

	if h.authStore != nil {
		identities, keys := h.authStore.Counts()
		checks["auth"] = fmt.Sprintf("ok: %d identities, %d keys", identities, keys)
	} else {
		checks["auth"] = "not configured"
	}

	if h.sessions != nil {
		result, ok := h.checkSessions(ctx)
		checks["sessions"] = result
		if !ok {
			healthy = false
		}
	} else {
		checks["sessions"] = "not configured"
	}

	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	return HealthResponse{
		Status:  status,
		Checks:  checks,
		Version: h.version,
	}
}

func (h *HealthChecker) checkSessions(ctx context.Context) (string, bool) {
	if p, ok := h.sessions.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return "error: " + err.Error(), false
		}
	}
	list, err := h.sessions.List(ctx)
	if err != nil {
		return "error: " + err.Error(), false
	}
	return fmt.Sprintf("ok: %d sessions", len(list)), true
}

// Handler returns an HTTP handler for the health endpoint.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable) // 503
		} else {
			w.WriteHeader(http.StatusOK) // 200
		}

		_ = json.NewEncoder(w).Encode(health)
	})
}

// healthHandler is the fallback /health handler when no checker is configured.
func healthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "healthy", Checks: map[string]string{}})
	})
}
