// Package health provides health checking functionality for the lab records API.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/kestrelhealth/labrecords-api/interfaces"
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	store        interfaces.DirectoryStore
	refreshHours int
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(store interfaces.DirectoryStore, refreshHours int) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		store:        store,
		refreshHours: refreshHours,
	}
}

// HealthCheck returns HTTP-specific health data with stricter thresholds
// Used by /health HTTP endpoint
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	directory := h.store.GetDirectory()
	lastReloaded := h.store.GetLastReloaded()
	isUpdating := h.store.IsUpdating()

	reloadAge := time.Since(lastReloaded)
	staleAfter := time.Duration(h.refreshHours) * time.Hour

	switch {
	case directory.Len() == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case reloadAge > 2*staleAfter:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case reloadAge > staleAfter:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case isUpdating && reloadAge > staleAfter/4:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	// Build response data (no system metrics, only data-related fields)
	data = map[string]any{
		"last_reload":      lastReloaded.Format(time.RFC3339),
		"reload_age_hours": math.Round(reloadAge.Hours()*10) / 10,
		"labs":             directory.Len(),
		"is_updating":      isUpdating,
	}

	return status, data, httpStatus
}

// CalculateNextReload returns the next scheduled directory reload time
func (h *HealthCheckerImpl) CalculateNextReload() time.Time {
	lastReloaded := h.store.GetLastReloaded()
	interval := time.Duration(h.refreshHours) * time.Hour

	if lastReloaded.IsZero() {
		return time.Now().Add(interval)
	}

	next := lastReloaded.Add(interval)
	for !next.After(time.Now()) {
		next = next.Add(interval)
	}
	return next
}
