package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/FitKeeper/internal/models"
	"go.uber.org/zap"
)

// errorResponse is the JSON body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeErrorMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// writeError maps service errors to status codes. Unknown errors are logged
// and reported as fallback with status 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: vErr.Message, Field: vErr.Field})
	case errors.Is(err, models.ErrValidation):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, "record not found")
	case errors.Is(err, models.ErrConflict):
		writeErrorMessage(w, http.StatusConflict, "record was modified concurrently, try again")
	case errors.Is(err, models.ErrUserExists):
		writeErrorMessage(w, http.StatusConflict, "user already exists")
	case errors.Is(err, models.ErrInvalidCredentials):
		writeErrorMessage(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, models.ErrUnauthorized):
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
	default:
		if logger != nil {
			logger.Error(fallback, zap.Error(err))
		}
		writeErrorMessage(w, http.StatusInternalServerError, fallback)
	}
}
