package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	apperrors "loan-prequal/internal/common/errors"
	"loan-prequal/internal/common/logger"
	"loan-prequal/internal/models"
	submitapplication "loan-prequal/internal/workers/pipeline/submit-application"

	"github.com/go-chi/chi/v5"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	maxBodyBytes         = 1 << 20
	healthCheckTimeout   = 3 * time.Second
)

type Handler struct {
	service ApplicationService
	checks  map[string]HealthCheck
	version string
	logger  logger.Logger
}

type errorResponse struct {
	Detail string            `json:"detail"`
	Code   string            `json:"code,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeValidationError(w http.ResponseWriter, err error) {
	resp := errorResponse{Detail: apperrors.Reason(err), Code: string(apperrors.ErrCodeValidationFailed)}
	var se *apperrors.StandardError
	if errors.As(err, &se) {
		if fields, ok := se.Metadata["fields"].(map[string]string); ok {
			resp.Errors = fields
		}
	}
	writeJSON(w, http.StatusUnprocessableEntity, resp)
}

func (h *Handler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	correlationID := CorrelationIDFrom(r.Context())
	log := h.logger.WithFields(map[string]interface{}{"correlationId": correlationID})

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeValidationError(w, apperrors.NewValidationError("request body too large or unreadable"))
		return
	}

	req, err := submitapplication.DecodeCreateRequest(body)
	if err != nil {
		log.Warn("rejected application request", map[string]interface{}{"reason": apperrors.Reason(err)})
		writeValidationError(w, err)
		return
	}

	resp, err := h.service.CreateApplication(r.Context(), req, r.Header.Get(IdempotencyKeyHeader), correlationID)
	switch {
	case err == nil:
	case apperrors.IsValidation(err):
		writeValidationError(w, err)
		return
	case errors.Is(err, submitapplication.ErrRequestInProgress):
		writeJSON(w, http.StatusConflict, errorResponse{
			Detail: "A request with this Idempotency-Key is still being processed",
		})
		return
	default:
		log.Error("failed to create application", map[string]interface{}{
			"errorCode": string(apperrors.CodeOf(err)),
			"error":     err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Detail: "Failed to create application. Please try again later.",
			Code:   string(apperrors.CodeOf(err)),
		})
		return
	}

	if resp.Replayed {
		w.Header().Set("Idempotent-Replayed", "true")
		writeJSON(w, http.StatusOK, resp)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "applicationID")

	resp, err := h.service.GetStatus(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case apperrors.IsValidation(err):
		writeValidationError(w, err)
	case errors.Is(err, submitapplication.ErrApplicationNotFound):
		nf := apperrors.NewNotFoundError("application", id)
		writeJSON(w, http.StatusNotFound, errorResponse{
			Detail: "Application with ID " + id + " not found",
			Code:   string(nf.Code),
		})
	default:
		h.logger.Error("failed to retrieve application status", map[string]interface{}{
			"applicationId": id,
			"error":         err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Detail: "Failed to retrieve application status. Please try again later.",
			Code:   string(apperrors.CodeOf(err)),
		})
	}
}

func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	status := models.ApplicationStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.StatusPending
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeValidationError(w, apperrors.NewValidationError("limit: must be a positive integer"))
			return
		}
		limit = n
	}

	apps, err := h.service.ListApplications(r.Context(), status, limit)
	if err != nil {
		if apperrors.IsValidation(err) {
			writeValidationError(w, err)
			return
		}
		h.logger.Error("failed to list applications", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Detail: "Failed to list applications. Please try again later.",
			Code:   string(apperrors.CodeOf(err)),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       status,
		"count":        len(apps),
		"applications": apps,
	})
}

// Health runs every dependency check concurrently.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = map[string]interface{}{}
		healthy = true
	)
	for name, check := range h.checks {
		wg.Add(1)
		go func(name string, check HealthCheck) {
			defer wg.Done()
			state := "healthy"
			if err := check(ctx); err != nil {
				state = "unhealthy"
				h.logger.Warn("health check failed", map[string]interface{}{"dependency": name, "error": err.Error()})
			}
			mu.Lock()
			defer mu.Unlock()
			results[name] = state
			if state != "healthy" {
				healthy = false
			}
		}(name, check)
	}
	wg.Wait()

	results["status"] = "healthy"
	code := http.StatusOK
	if !healthy {
		results["status"] = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	if h.version != "" {
		results["version"] = h.version
	}
	writeJSON(w, code, results)
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
