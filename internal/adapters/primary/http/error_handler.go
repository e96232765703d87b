package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/lorrc/support-signals/internal/core/errors"
)

// ErrorResponse is the standard JSON error response format
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ValidationErrorResponse includes field-level validation errors
type ValidationErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// errorMapping binds a sentinel to its HTTP shape. An empty message echoes
// the error text, which is only safe for client-caused errors.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{apperrors.ErrThreadNotFound, http.StatusNotFound, "THREAD_NOT_FOUND", "Thread not found"},
	{apperrors.ErrKPISnapshotNotFound, http.StatusNotFound, "KPI_SNAPSHOT_NOT_FOUND", "No KPI snapshot has been recorded"},
	{apperrors.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "Resource not found"},
	{apperrors.ErrMalformedRecord, http.StatusUnprocessableEntity, "MALFORMED_RECORD", ""},
	{apperrors.ErrBadRequest, http.StatusBadRequest, "BAD_REQUEST", ""},
	{apperrors.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later."},
	{context.Canceled, http.StatusServiceUnavailable, "REQUEST_CANCELLED", "Request cancelled before completion"},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, "REQUEST_CANCELLED", "Request cancelled before completion"},
}

var internalError = ErrorResponse{Error: "An unexpected error occurred", Code: "INTERNAL_ERROR"}

// ErrorHandler turns service and adapter errors into JSON responses and
// logs them with the request's context.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler with the given logger
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle processes an error and writes the appropriate HTTP response
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	var (
		appErr         *apperrors.AppError
		validationErrs *apperrors.ValidationErrors
	)

	switch {
	case errors.As(err, &appErr):
		h.log(r, appErr.StatusCode, err)
		WriteJSON(w, appErr.StatusCode, ErrorResponse{
			Error:   appErr.Message,
			Code:    appErr.Code,
			Details: appErr.Details,
		})

	case errors.As(err, &validationErrs):
		h.log(r, http.StatusUnprocessableEntity, err)
		WriteJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:  "Validation failed",
			Code:   "VALIDATION_ERROR",
			Fields: validationErrs.Errors,
		})

	default:
		status, response := mapDomainError(err)
		h.log(r, status, err)
		WriteJSON(w, status, response)
	}
}

func mapDomainError(err error) (int, ErrorResponse) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		response := ErrorResponse{Error: m.message, Code: m.code}
		if response.Error == "" {
			response.Error = err.Error()
		}

		var malformed *apperrors.MalformedRecordError
		if errors.As(err, &malformed) {
			response.Details = map[string]any{
				"threadId": malformed.ThreadID,
				"field":    malformed.Field,
			}
		}
		return m.status, response
	}
	return http.StatusInternalServerError, internalError
}

func (h *ErrorHandler) log(r *http.Request, status int, err error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", status,
		"error", err.Error(),
	)
}
