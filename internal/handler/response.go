package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/malshee/user-registration/internal/apperror"
	"github.com/malshee/user-registration/internal/model"
)

// Response is the body shape every endpoint returns:
// {success, message?, user?, token?}.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	User    *model.User `json:"user,omitempty"`
	Token   string      `json:"token,omitempty"`
}

// writeJSON sends a JSON response with the given status code. Headers and
// status must be written before the body is encoded.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError is the single error path every handler funnels failures
// through: it maps a domain error onto an HTTP status and a user-facing
// message. Unexpected errors become a generic 500 with no internal detail
// leaked to the caller.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError

		switch {
		case errors.Is(err, apperror.ErrValidation),
			errors.Is(err, apperror.ErrDuplicate),
			errors.Is(err, apperror.ErrAuth),
			errors.Is(err, apperror.ErrUnsupportedMedia):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrUpload):
			status = http.StatusInternalServerError
		}

		writeJSON(w, status, Response{
			Success: false,
			Message: appErr.Message,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, Response{
		Success: false,
		Message: "Internal Server Error",
	})
}
