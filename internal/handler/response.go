package handler

// Response helpers shared by every handler: one JSON writer, one error
// writer. Every error response has the same shape —
//
//	{"error": "not_found", "message": "prompt not found with id abc123"}
//
// — so the frontend always knows what fields to expect, regardless of the
// status code.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/prompt-manager/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code. Headers and
// status must be set before the first body write — hence the fixed order.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already gone out; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status and sends it.
// The service layers return apperror sentinels; only this function knows
// which status code each kind deserves:
//
//	validation / data format → 400
//	not found                → 404
//	conflict (sync running)  → 409
//	not configured           → 412
//	remote store failure     → 502
//	persistence / unknown    → 500
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrDataFormat):
			status = http.StatusBadRequest
			errorType = "data_format_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		case errors.Is(err, apperror.ErrConfiguration):
			status = http.StatusPreconditionFailed
			errorType = "not_configured"
		case errors.Is(err, apperror.ErrRemote):
			status = http.StatusBadGateway
			errorType = "remote_error"
		case errors.Is(err, apperror.ErrPersistence):
			status = http.StatusInternalServerError
			errorType = "persistence_error"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	// Unknown error — keep internals (paths, SQL) out of the response body.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
