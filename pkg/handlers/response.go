// Package handlers contains the HTTP surface of the engine.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/forgelane/proposal-engine/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteDomainError maps an error from the service layer onto an HTTP status
// and writes the JSON error body.
func WriteDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		status = http.StatusInternalServerError
		code   = "internal_error"
		msg    = "An internal error occurred"
	)

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, code, msg = http.StatusNotFound, "not_found", "Resource not found"
	case apperrors.IsValidation(err):
		status, code, msg = http.StatusBadRequest, "validation_failed", err.Error()
	case apperrors.IsStageInvariant(err):
		status, code, msg = http.StatusConflict, "stage_invariant_violation", err.Error()
	case apperrors.IsExhausted(err):
		status, code, msg = http.StatusServiceUnavailable, "providers_exhausted",
			"All AI providers are currently unavailable"
	case apperrors.IsPersistence(err):
		logger.Error("persistence failure", zap.Error(err))
	default:
		logger.Error("unhandled error", zap.Error(err))
	}

	if writeErr := ErrorResponse(w, status, code, msg); writeErr != nil {
		logger.Error("Failed to write error response", zap.Error(writeErr))
	}
}
