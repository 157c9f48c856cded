// Package interfaces defines core abstractions for the lab records API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"net/http"
	"time"

	"github.com/kestrelhealth/labrecords-api/docparser/entities"
	"github.com/kestrelhealth/labrecords-api/labdirectory"
)

// DirectoryStore defines the contract for lab directory storage operations.
// It provides thread-safe access to the loaded directory with atomic
// operations for zero-downtime reloads.
type DirectoryStore interface {
	// Data retrieval methods
	GetDirectory() *labdirectory.Directory
	GetLastReloaded() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	// Data update methods
	UpdateDirectory(directory *labdirectory.Directory)
	BeginUpdate() bool
	EndUpdate()
}

// Scheduler defines the contract for job scheduling and health monitoring.
// It manages automated directory reloads and system health checks.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// HTTPHandler defines the contract for HTTP request handlers.
// It provides a consistent interface for all API endpoints.
type HTTPHandler interface {
	// ServeHTTP implements the http.Handler interface
	ServeHTTP(w http.ResponseWriter, r *http.Request)

	// Specific endpoint handlers
	ProcessDocuments(w http.ResponseWriter, r *http.Request)
	CheckDuplicate(w http.ResponseWriter, r *http.Request)
	DeduplicateResults(w http.ResponseWriter, r *http.Request)
	AggregateStatus(w http.ResponseWriter, r *http.Request)
	ServeLabs(w http.ResponseWriter, r *http.Request)
	FindLab(w http.ResponseWriter, r *http.Request)
	// This will stay in all versions
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
// It provides system health monitoring and reporting.
type HealthChecker interface {
	// HealthCheck returns current system health status
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextReload returns the next scheduled directory reload time
	CalculateNextReload() time.Time
}

// DataValidator defines the contract for input validation operations.
// It ensures request payloads are safe and well formed before processing.
type DataValidator interface {
	// ValidateExtraction checks if a parsed document extraction is usable
	ValidateExtraction(e *entities.RawExtraction) error

	// ValidateInput validates user input strings
	ValidateInput(input string) error

	// ValidateExactHash validates a hex-encoded SHA-256 content hash
	ValidateExactHash(input string) error

	// ValidateSimHash validates a hex-encoded 64-bit simhash
	ValidateSimHash(input string) error
}
