package validation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/lorrc/support-signals/internal/core/errors"
)

// Validator validates request data
type Validator struct {
	errors *apperrors.ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		errors: apperrors.NewValidationErrors(),
	}
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return v.errors.HasErrors()
}

// Errors returns the validation errors
func (v *Validator) Errors() *apperrors.ValidationErrors {
	return v.errors
}

// Required validates that a string is not empty
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.errors.Add(field, "This field is required")
	}
	return v
}

// MaxLength validates maximum string length
func (v *Validator) MaxLength(field, value string, max int) *Validator {
	if len(value) > max {
		v.errors.Add(field, "Must be at most "+strconv.Itoa(max)+" characters")
	}
	return v
}

// Max validates maximum integer value
func (v *Validator) Max(field string, value, max int) *Validator {
	if value > max {
		v.errors.Add(field, "Must be at most "+strconv.Itoa(max))
	}
	return v
}

// Range validates integer is within range
func (v *Validator) Range(field string, value, min, max int) *Validator {
	if value < min || value > max {
		v.errors.Add(field, "Must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max))
	}
	return v
}

// OneOf validates value is one of the allowed values
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v // Empty is handled by Required
	}

	for _, a := range allowed {
		if value == a {
			return v
		}
	}

	v.errors.Add(field, "Must be one of: "+strings.Join(allowed, ", "))
	return v
}

// Custom adds a custom validation
func (v *Validator) Custom(field string, valid bool, message string) *Validator {
	if !valid {
		v.errors.Add(field, message)
	}
	return v
}

// Validatable is implemented by request bodies that check their own
// constraints after decoding.
type Validatable interface {
	Validate() error
}

// DecodeAndValidate decodes a single JSON value of at most maxBytes bytes
// and, when *T implements Validatable, validates it. A maxBytes of zero or
// less disables the size limit. Trailing data after the value is rejected.
func DecodeAndValidate[T any](w http.ResponseWriter, r *http.Request, maxBytes int64) (*T, error) {
	body := r.Body
	if maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, maxBytes)
	}

	req := new(T)
	dec := json.NewDecoder(body)
	if err := dec.Decode(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.NewBadRequestError(err, "Request body too large")
		}
		return nil, apperrors.NewBadRequestError(err, "Invalid request body")
	}
	if dec.More() {
		return nil, apperrors.NewBadRequestError(nil, "Request body must hold a single JSON value")
	}

	if v, ok := any(req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// ParseIntQueryParam safely parses a non-negative integer query parameter
func ParseIntQueryParam(r *http.Request, key string, defaultValue int) int {
	valueStr := r.URL.Query().Get(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil || value < 0 {
		return defaultValue
	}

	return value
}

// ParseInt64QueryParam safely parses a non-negative int64 query parameter
func ParseInt64QueryParam(r *http.Request, key string, defaultValue int64) int64 {
	valueStr := r.URL.Query().Get(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil || value < 0 {
		return defaultValue
	}

	return value
}

// ParseStringQueryParam safely parses a string query parameter
func ParseStringQueryParam(r *http.Request, key string) *string {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return nil
	}
	return &value
}

// ParseStringListQueryParam splits a comma-separated query parameter,
// dropping empty entries.
func ParseStringListQueryParam(r *http.Request, key string) []string {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}

	var values []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

// TimeParam is a parsed time query parameter.
type TimeParam struct {
	Time     time.Time
	DateOnly bool // the caller supplied a calendar date without a time
}

// ParseTimeQueryParam parses an RFC 3339 timestamp or a YYYY-MM-DD date.
// A missing parameter returns nil without error.
func ParseTimeQueryParam(r *http.Request, key string) (*TimeParam, error) {
	valueStr := strings.TrimSpace(r.URL.Query().Get(key))
	if valueStr == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, valueStr); err == nil {
		return &TimeParam{Time: t.UTC()}, nil
	}

	t, err := time.Parse(time.DateOnly, valueStr)
	if err != nil {
		return nil, err
	}
	return &TimeParam{Time: t.UTC(), DateOnly: true}, nil
}
