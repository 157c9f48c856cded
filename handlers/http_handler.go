// Package handlers provides HTTP request handlers for the lab records API
// endpoints. It includes handlers for document processing, duplicate checks,
// result deduplication, status aggregation, lab directory lookups, and health
// checks with proper input validation and error handling.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kestrelhealth/labrecords-api/conditions"
	"github.com/kestrelhealth/labrecords-api/dedup"
	"github.com/kestrelhealth/labrecords-api/docparser/entities"
	"github.com/kestrelhealth/labrecords-api/fingerprint"
	"github.com/kestrelhealth/labrecords-api/grouping"
	"github.com/kestrelhealth/labrecords-api/interfaces"
	"github.com/kestrelhealth/labrecords-api/logging"
	"github.com/kestrelhealth/labrecords-api/metrics"
	"github.com/kestrelhealth/labrecords-api/verification"
)

const maxDocumentsPerBatch = 50
const maxStoredFingerprints = 10000
const maxOutcomesPerRequest = 500

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	store            interfaces.DirectoryStore
	validator        interfaces.DataValidator
	healthChecker    interfaces.HealthChecker
	simhashThreshold int
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(store interfaces.DirectoryStore, validator interfaces.DataValidator,
	healthChecker interfaces.HealthChecker, simhashThreshold int) interfaces.HTTPHandler {
	return &HTTPHandlerImpl{
		store:            store,
		validator:        validator,
		healthChecker:    healthChecker,
		simhashThreshold: simhashThreshold,
	}
}

// ServeHTTP implements the http.Handler interface
func (h *HTTPHandlerImpl) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// This is a placeholder - the actual routing is handled by chi
	http.Error(w, "Not implemented", http.StatusNotImplemented)
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]interface{}{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	h.RespondWithJSON(w, code, errorResponse)
}

func (h *HTTPHandlerImpl) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		logging.Warn("Malformed request body", "path", r.URL.Path, "error", err)
		h.RespondWithError(w, http.StatusBadRequest, "Malformed JSON body: "+err.Error())
		return false
	}
	return true
}

// ProcessRequest is the payload for the document processing endpoint
type ProcessRequest struct {
	Documents    []entities.RawExtraction `json:"documents"`
	Profile      *entities.UserProfile    `json:"profile,omitempty"`
	BuildRecords bool                     `json:"buildRecords,omitempty"`
}

// ProcessResponse carries the grouped and deduplicated results
type ProcessResponse struct {
	Groups  []entities.DateGroup `json:"groups"`
	Records []entities.LabRecord `json:"records,omitempty"`
}

// ProcessDocuments groups a batch of parsed documents by collection date,
// deduplicates their test outcomes, and scores verification evidence
func (h *HTTPHandlerImpl) ProcessDocuments(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if len(req.Documents) == 0 {
		h.RespondWithError(w, http.StatusBadRequest, "No documents provided")
		return
	}
	if len(req.Documents) > maxDocumentsPerBatch {
		h.RespondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("Too many documents: maximum %d per batch", maxDocumentsPerBatch))
		return
	}

	for i := range req.Documents {
		if err := h.validator.ValidateExtraction(&req.Documents[i]); err != nil {
			metrics.DocumentsProcessedTotal.WithLabelValues("rejected").Inc()
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	scorer := verification.NewScorer(h.store.GetDirectory())
	grouper := grouping.NewGrouper(scorer).WithObserver(logging.Info, logging.Warn)
	groups := grouper.Group(req.Documents, req.Profile)

	metrics.DocumentsProcessedTotal.WithLabelValues("accepted").Add(float64(len(req.Documents)))
	for _, group := range groups {
		if group.Verification != nil {
			metrics.VerificationLevelTotal.WithLabelValues(string(group.Verification.Level)).Inc()
		}
		metrics.ResultConflictsTotal.Add(float64(len(group.Conflicts)))
	}

	response := ProcessResponse{Groups: groups}
	if req.BuildRecords {
		records := make([]entities.LabRecord, 0, len(groups))
		for _, group := range groups {
			records = append(records, grouping.BuildRecord(group))
		}
		response.Records = records
	}

	h.RespondWithJSON(w, http.StatusOK, response)
}

// DuplicateCheckRequest is the payload for the duplicate check endpoint.
// Either RawText or an ExactHash/SimHash pair must be provided.
type DuplicateCheckRequest struct {
	RawText   string                          `json:"rawText,omitempty"`
	ExactHash string                          `json:"exactHash,omitempty"`
	SimHash   string                          `json:"simHash,omitempty"`
	Stored    []fingerprint.StoredFingerprint `json:"stored"`
	Threshold *int                            `json:"threshold,omitempty"`
}

// CheckDuplicate fingerprints the incoming document and compares it against
// the caller's stored fingerprints
func (h *HTTPHandlerImpl) CheckDuplicate(w http.ResponseWriter, r *http.Request) {
	var req DuplicateCheckRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if len(req.Stored) > maxStoredFingerprints {
		h.RespondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("Too many stored fingerprints: maximum %d", maxStoredFingerprints))
		return
	}

	var fp entities.ContentFingerprint
	switch {
	case req.RawText != "":
		fp = fingerprint.Fingerprint(req.RawText)
	case req.ExactHash != "" || req.SimHash != "":
		if err := h.validator.ValidateExactHash(req.ExactHash); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, "Invalid exactHash: "+err.Error())
			return
		}
		if err := h.validator.ValidateSimHash(req.SimHash); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, "Invalid simHash: "+err.Error())
			return
		}
		fp = entities.ContentFingerprint{ExactHash: req.ExactHash, SimHash: req.SimHash}
	default:
		h.RespondWithError(w, http.StatusBadRequest, "Either rawText or exactHash and simHash are required")
		return
	}

	threshold := h.simhashThreshold
	if req.Threshold != nil {
		if *req.Threshold < 0 || *req.Threshold > 64 {
			h.RespondWithError(w, http.StatusBadRequest, "Threshold must be between 0 and 64")
			return
		}
		threshold = *req.Threshold
	}

	verdict := fingerprint.CheckDuplicate(fp, req.Stored, threshold)

	switch {
	case verdict.IsExactDuplicate:
		metrics.DuplicateChecksTotal.WithLabelValues("exact").Inc()
	case verdict.IsDuplicate:
		metrics.DuplicateChecksTotal.WithLabelValues("near").Inc()
	default:
		metrics.DuplicateChecksTotal.WithLabelValues("none").Inc()
	}

	h.RespondWithJSON(w, http.StatusOK, verdict)
}

// DeduplicateRequest is the payload for the result deduplication endpoint
type DeduplicateRequest struct {
	Tests []entities.TestOutcome `json:"tests"`
}

// DeduplicateResults collapses repeated test outcomes under clinical
// status precedence and reports any conflicts found
func (h *HTTPHandlerImpl) DeduplicateResults(w http.ResponseWriter, r *http.Request) {
	var req DeduplicateRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	if len(req.Tests) > maxOutcomesPerRequest {
		h.RespondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("Too many test outcomes: maximum %d", maxOutcomesPerRequest))
		return
	}
	for i, test := range req.Tests {
		if strings.TrimSpace(test.Name) == "" {
			h.RespondWithError(w, http.StatusBadRequest,
				fmt.Sprintf("Empty test name at index %d", i))
			return
		}
	}

	result := dedup.Deduplicate(req.Tests)
	metrics.ResultConflictsTotal.Add(float64(len(result.Conflicts)))

	h.RespondWithJSON(w, http.StatusOK, result)
}

// AggregateRequest is the payload for the status aggregation endpoint
type AggregateRequest struct {
	History         []entities.LabRecord      `json:"history"`
	KnownConditions []entities.KnownCondition `json:"knownConditions,omitempty"`
}

// AggregateStatus computes the most recent status for each distinct test
// across the user's record history, partitioned by declared conditions
func (h *HTTPHandlerImpl) AggregateStatus(w http.ResponseWriter, r *http.Request) {
	var req AggregateRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	summary := conditions.NewAggregator().Aggregate(req.History, req.KnownConditions)
	h.RespondWithJSON(w, http.StatusOK, summary)
}

// ServeLabs returns all directory entries, optionally filtered by region
func (h *HTTPHandlerImpl) ServeLabs(w http.ResponseWriter, r *http.Request) {
	directory := h.store.GetDirectory()

	region := r.URL.Query().Get("region")
	if region != "" {
		if err := h.validator.ValidateInput(region); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.RespondWithJSON(w, http.StatusOK, directory.ByRegion(region))
		return
	}

	h.RespondWithJSON(w, http.StatusOK, directory.Entries())
}

// FindLab resolves a raw OCR-extracted lab name against the directory
func (h *HTTPHandlerImpl) FindLab(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		h.RespondWithError(w, http.StatusBadRequest, "Missing lab name")
		return
	}

	// Validate input using the validator
	if err := h.validator.ValidateInput(name); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	directory := h.store.GetDirectory()
	lab, found := directory.FindLab(name)
	if !found {
		h.RespondWithError(w, http.StatusNotFound, "No recognized lab matches: "+name)
		return
	}

	response := map[string]interface{}{
		"lab":        lab,
		"normalized": directory.NormalizeLabName(name),
	}
	h.RespondWithJSON(w, http.StatusOK, response)
}

// HealthResponseImpl defines the structure for consistent JSON ordering
type HealthResponseImpl struct {
	Status        string                 `json:"status"`
	UptimeSeconds float64                `json:"uptime_seconds"`
	Uptime        string                 `json:"uptime"`
	Data          map[string]interface{} `json:"data"`
	System        map[string]interface{} `json:"system"`
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	// Get memory statistics
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status, data, httpStatus := h.healthChecker.HealthCheck()

	uptime := time.Since(h.store.GetServerStartTime())
	data["next_reload"] = h.healthChecker.CalculateNextReload().Format(time.RFC3339)

	response := HealthResponseImpl{
		Status:        status,
		UptimeSeconds: uptime.Seconds(),
		Uptime:        h.formatUptimeHuman(uptime),
		Data:          data,
		System: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc_mb":       int(m.Alloc / 1024 / 1024),
				"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
				"sys_mb":         int(m.Sys / 1024 / 1024),
				"num_gc":         m.NumGC,
			},
		},
	}

	h.RespondWithJSON(w, httpStatus, response)
}

// formatUptimeHuman formats duration into a human-readable string
func (h *HTTPHandlerImpl) formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
