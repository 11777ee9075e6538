package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/YelzhanWeb/fieldops/internal/adapter/logger"
	"github.com/YelzhanWeb/fieldops/internal/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Reason string            `json:"reason,omitempty"`
	Errors []ValidationError `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, message string, statusCode int, validationErrors []ValidationError) {
	respondJSON(w, statusCode, ErrorResponse{
		Error:  message,
		Errors: validationErrors,
	})
}

// respondServiceError maps service errors onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, r *http.Request, logger logger.Logger, err error) {
	var te *domain.TransitionError
	switch {
	case errors.As(err, &te):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid transition", Reason: te.Reason})
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, "Not found", http.StatusNotFound, nil)
	case errors.Is(err, domain.ErrForbidden):
		respondError(w, "Forbidden", http.StatusForbidden, nil)
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidTransition):
		respondError(w, err.Error(), http.StatusBadRequest, nil)
	default:
		logger.Error("request_failed", "Unhandled service error", RequestIDFromContext(r.Context()), map[string]interface{}{
			"path": r.URL.Path,
		}, err)
		respondError(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}
