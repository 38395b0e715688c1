package handler

// RESPONSE HELPERS:
// Every JSON response goes through writeJSON and every failure through
// writeError, so all endpoints share one error shape:
//
//	{"error": "not_found", "message": "paste not found with id 42"}
//	{"error": "validation_error", "message": "title is required", "field": "title"}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/pastie/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable error type
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // offending input field, for validation errors
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status MUST be set before the body: the first Write sends
// them, and later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeText sends a non-JSON body such as a stylesheet or a patch.
func writeText(w http.ResponseWriter, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		slog.Error("failed to write response", slog.String("error", err.Error()))
	}
}

// writeError maps a domain error to its HTTP status.
//
// ERROR MAPPING:
//
//	apperror.ErrValidation → 400
//	apperror.ErrNotFound   → 404
//	apperror.ErrIntegrity  → 500, logged: the stored data is broken
//	anything else          → 500, logged, details hidden from the client
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		resp := ErrorResponse{Error: "internal_error", Message: appErr.Message, Field: appErr.Field}

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			resp.Error = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			resp.Error = "not_found"
		case errors.Is(err, apperror.ErrIntegrity):
			resp.Error = "integrity_error"
			logger.Error("data integrity error", slog.String("error", err.Error()))
		}

		writeJSON(w, status, resp)
		return
	}

	// NEVER expose internal error details: the raw message might contain SQL
	// or file paths.
	logger.Error("internal error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
