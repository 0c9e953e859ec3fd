package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the enrichment core and its sources.
var (
	// ErrMissingTypeInformation means an instance declares no @type.
	ErrMissingTypeInformation = errors.New("missing type information")
	// ErrUpstreamUnavailable means a call to the graph store failed as a whole.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrNotFound means the requested instance or type does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput means a request carried a malformed id or payload.
	ErrInvalidInput = errors.New("invalid input")
)

// Error codes used in per-instance error records and error responses.
const (
	CodeMissingTypeInformation = "MISSING_TYPE_INFORMATION"
	CodeUpstreamUnavailable    = "UPSTREAM_UNAVAILABLE"
	CodeNotFound               = "NOT_FOUND"
	CodeValidation             = "VALIDATION_ERROR"
	CodeInternal               = "INTERNAL_ERROR"
)

// ErrorRecord is the error object embedded in place of data for one entry of
// a batch response.
type ErrorRecord struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorCode maps err onto its error code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrMissingTypeInformation):
		return CodeMissingTypeInformation
	case errors.Is(err, ErrUpstreamUnavailable):
		return CodeUpstreamUnavailable
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidInput):
		return CodeValidation
	default:
		return CodeInternal
	}
}

// NewErrorRecord builds the embedded error record for err.
func NewErrorRecord(err error) *ErrorRecord {
	return &ErrorRecord{Code: ErrorCode(err), Message: err.Error()}
}

// Upstream wraps err as an ErrUpstreamUnavailable failure of op.
func Upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstreamUnavailable, err)
}
