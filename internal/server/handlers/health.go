// Package handlers implements the HTTP handlers of the gobiome API server:
// processing-job lifecycle, archive observations, reference filepaths, and
// the health/version endpoints.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/3leaps/gobiome/internal/errors"
)

// HealthChecker probes one dependency of the running service.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// healthCheckTimeout bounds each individual probe.
const healthCheckTimeout = 2 * time.Second

// HealthResponse is the body returned by /health when the service is
// healthy or degraded.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthManager runs registered checkers and aggregates their results.
type HealthManager struct {
	version string

	mu       sync.RWMutex
	checkers map[string]HealthChecker
}

// NewHealthManager builds a manager reporting the given service version.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		version:  version,
		checkers: make(map[string]HealthChecker),
	}
}

// RegisterChecker adds a named dependency probe. Re-registering a name
// replaces the previous checker.
func (m *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = checker
}

func (m *HealthManager) runChecks(ctx context.Context) map[string]string {
	m.mu.RLock()
	checkers := make(map[string]HealthChecker, len(m.checkers))
	for name, checker := range m.checkers {
		checkers[name] = checker
	}
	m.mu.RUnlock()

	results := make(map[string]string, len(checkers))
	for name, checker := range checkers {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := checker.CheckHealth(checkCtx)
		cancel()

		switch {
		case err == nil:
			results[name] = "healthy"
		case errors.Is(err, context.DeadlineExceeded):
			results[name] = "timeout"
		default:
			results[name] = "unhealthy"
		}
	}
	return results
}

func (m *HealthManager) determineOverallStatus(checks map[string]string) string {
	status := "healthy"
	for _, check := range checks {
		switch check {
		case "unhealthy":
			return "unhealthy"
		case "timeout":
			status = "degraded"
		}
	}
	return status
}

// HealthHandler reports the aggregate health of the service. Healthy and
// degraded states return 200 with a HealthResponse; unhealthy returns 503
// with the standard error envelope carrying per-check results.
func (m *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checks := m.runChecks(r.Context())
	status := m.determineOverallStatus(checks)

	if status == "unhealthy" {
		envelope := apperrors.NewErrorEnvelope(apperrors.CodeUnavailable, "service is unhealthy").
			WithRequestID(apperrors.RequestIDFromContext(r.Context())).
			WithDetails(map[string]any{"checks": checks})
		apperrors.WriteHTTPError(w, http.StatusServiceUnavailable, envelope)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Version:   m.version,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}

// LivenessHandler reports that the process is running. It never consults
// checkers so a wedged dependency cannot make the orchestrator restart us.
func (m *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ReadinessHandler reports whether the service can take traffic. Any
// unhealthy dependency fails readiness.
func (m *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	checks := m.runChecks(r.Context())
	if m.determineOverallStatus(checks) == "unhealthy" {
		envelope := apperrors.NewErrorEnvelope(apperrors.CodeUnavailable, "service is not ready").
			WithRequestID(apperrors.RequestIDFromContext(r.Context())).
			WithDetails(map[string]any{"checks": checks})
		apperrors.WriteHTTPError(w, http.StatusServiceUnavailable, envelope)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// StartupHandler reports that initialization completed. Registration of
// the manager itself is the startup signal.
func (m *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

var globalHealthManager *HealthManager

// InitHealthManager installs the process-wide health manager used by the
// package-level handlers.
func InitHealthManager(version string) {
	globalHealthManager = NewHealthManager(version)
}

// GetHealthManager returns the process-wide health manager, or nil before
// InitHealthManager runs.
func GetHealthManager() *HealthManager {
	return globalHealthManager
}

func writeUninitialized(w http.ResponseWriter, r *http.Request) {
	envelope := apperrors.NewErrorEnvelope(apperrors.CodeUnavailable, "health manager not initialized").
		WithRequestID(apperrors.RequestIDFromContext(r.Context()))
	apperrors.WriteHTTPError(w, http.StatusServiceUnavailable, envelope)
}

// HealthHandler serves /health through the global manager.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	if globalHealthManager == nil {
		writeUninitialized(w, r)
		return
	}
	globalHealthManager.HealthHandler(w, r)
}

// LivenessHandler serves /health/live through the global manager.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	if globalHealthManager == nil {
		writeUninitialized(w, r)
		return
	}
	globalHealthManager.LivenessHandler(w, r)
}

// ReadinessHandler serves /health/ready through the global manager.
func ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if globalHealthManager == nil {
		writeUninitialized(w, r)
		return
	}
	globalHealthManager.ReadinessHandler(w, r)
}

// StartupHandler serves /health/startup through the global manager.
func StartupHandler(w http.ResponseWriter, r *http.Request) {
	if globalHealthManager == nil {
		writeUninitialized(w, r)
		return
	}
	globalHealthManager.StartupHandler(w, r)
}
