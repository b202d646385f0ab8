package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dee-mee/aquatrack"
)

// envelope is the standard response wrapper used across handlers.
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (h *Handler) respond(w http.ResponseWriter, status int, message string, data any) {
	h.write(w, status, envelope{Code: status, Message: message, Data: data})
}

func (h *Handler) respondErr(w http.ResponseWriter, status int, message string) {
	h.write(w, status, envelope{Code: status, Message: message})
}

func (h *Handler) write(w http.ResponseWriter, status int, payload envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response failed", slog.String("error", err.Error()))
	}
}

// fail maps a domain error onto an HTTP status and writes it out.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case aquatrack.IsNotFound(err):
		h.respondErr(w, http.StatusNotFound, err.Error())
	case aquatrack.IsConflict(err):
		h.respondErr(w, http.StatusConflict, err.Error())
	case errors.Is(err, aquatrack.ErrInvalidCredentials),
		errors.Is(err, aquatrack.ErrUnauthorized):
		h.respondErr(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, aquatrack.ErrForbidden):
		h.respondErr(w, http.StatusForbidden, err.Error())
	case aquatrack.IsValidation(err),
		errors.Is(err, aquatrack.ErrInvalidInput),
		errors.Is(err, aquatrack.ErrWeakPassword),
		errors.Is(err, aquatrack.ErrReadingNotMonotonic):
		h.respondErr(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", slog.String("error", err.Error()))
		h.respondErr(w, http.StatusInternalServerError, "internal server error")
	}
}
