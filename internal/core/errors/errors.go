package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Field-level reasons a thread record is rejected. Each is wrapped in a
// MalformedRecordError naming the thread and the field.
var (
	ErrMalformedRecord           = errors.New("malformed thread record")
	ErrThreadIDRequired          = errors.New("thread ID is required")
	ErrResolutionStatusRequired  = errors.New("resolution status is required")
	ErrInvalidResolutionStatus   = errors.New("invalid resolution status")
	ErrLastMessageAtRequired     = errors.New("last message timestamp is required")
	ErrMessageTimestampsReversed = errors.New("last message timestamp precedes first message timestamp")
	ErrNegativeEscalationCount   = errors.New("escalation count cannot be negative")
)

var (
	ErrThreadNotFound      = errors.New("thread not found")
	ErrKPISnapshotNotFound = errors.New("kpi snapshot not found")

	ErrNotFound    = errors.New("resource not found")
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// MalformedRecordError describes why a single thread record was rejected.
// It matches both ErrMalformedRecord and the field-level cause.
type MalformedRecordError struct {
	ThreadID string
	Field    string
	Err      error
}

// NewMalformedRecordError builds a MalformedRecordError for the given field.
func NewMalformedRecordError(threadID, field string, err error) *MalformedRecordError {
	return &MalformedRecordError{ThreadID: threadID, Field: field, Err: err}
}

func (e *MalformedRecordError) Error() string {
	id := e.ThreadID
	if id == "" {
		id = "<unknown>"
	}
	return fmt.Sprintf("malformed record %s: %s: %v", id, e.Field, e.Err)
}

func (e *MalformedRecordError) Unwrap() []error {
	return []error{ErrMalformedRecord, e.Err}
}

// AppError carries an HTTP-facing status, code and message for an error
// raised at the adapter edge, such as an unreadable request body.
type AppError struct {
	Err        error
	Message    string
	Code       string
	StatusCode int
	Details    map[string]any
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewBadRequestError reports a request the server could not parse.
func NewBadRequestError(err error, message string) *AppError {
	wrapped := ErrBadRequest
	if err != nil {
		wrapped = fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return &AppError{
		Err:        wrapped,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: http.StatusBadRequest,
	}
}

// ValidationErrors collects per-field messages for a request that parsed
// but failed its constraints.
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Errors: make(map[string][]string)}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	fields := make([]string, 0, len(v.Errors))
	for field := range v.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}
