package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch status := StatusFor(err); status {
	case http.StatusBadRequest:
		Problem(w, status, "Validation Failed", err.Error())
	case http.StatusNotFound:
		Problem(w, status, "Not Found", err.Error())
	case http.StatusUnprocessableEntity:
		Problem(w, status, "Configuration Error", err.Error())
	case http.StatusConflict:
		Problem(w, status, "Conflict", shared.UserSafeMessage(err))
	case http.StatusServiceUnavailable:
		Problem(w, status, "Service Unavailable", shared.UserSafeMessage(err))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// StatusFor returns the HTTP status RespondError writes for err.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrConcurrency):
		return http.StatusConflict
	case errors.Is(err, shared.ErrPersistence), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// LogFailure logs a failed request: client errors at Warn, server faults at Error.
func LogFailure(logger *slog.Logger, op string, err error, attrs ...slog.Attr) {
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelError
	if StatusFor(err) < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	logger.LogAttrs(context.Background(), level, op, append(attrs, slog.Any("error", err))...)
}
