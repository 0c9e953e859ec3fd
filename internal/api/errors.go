package api

import (
	"log/slog"
	"net/http"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
)

// CodeUnauthorized is the error code of a rejected bearer token.
const CodeUnauthorized = "UNAUTHORIZED"

// Error is the error response envelope.
type Error struct {
	Error         domain.ErrorRecord `json:"error"`
	CorrelationID string             `json:"correlationId,omitempty"`
}

// NewError creates an error envelope with the given code.
func NewError(code, message, correlationID string) *Error {
	return &Error{
		Error:         domain.ErrorRecord{Code: code, Message: message},
		CorrelationID: correlationID,
	}
}

// NewNotFoundError creates a 404 error with the NOT_FOUND code.
func NewNotFoundError(message, correlationID string) *Error {
	return NewError(domain.CodeNotFound, message, correlationID)
}

// NewValidationError creates a 400 error with the VALIDATION_ERROR code.
func NewValidationError(message, correlationID string) *Error {
	return NewError(domain.CodeValidation, message, correlationID)
}

// WriteError writes an Error as a JSON response with the given HTTP status code.
func WriteError(w http.ResponseWriter, statusCode int, apiErr *Error) {
	WriteJSON(w, statusCode, apiErr)
}

// StatusFor maps an error code onto its HTTP status.
func StatusFor(code string) int {
	switch code {
	case domain.CodeMissingTypeInformation:
		return http.StatusUnprocessableEntity
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeUpstreamUnavailable:
		return http.StatusBadGateway
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// WriteDomainError writes err with the status and code of its error kind.
// Internal errors are logged and answered with a generic message.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	corrID := CorrelationID(r.Context())
	code := domain.ErrorCode(err)
	status := StatusFor(code)
	msg := err.Error()

	switch {
	case code == domain.CodeInternal:
		slog.Error("request failed", "error", err, "path", r.URL.Path, "correlationId", corrID)
		msg = "Internal Server Error"
	case status >= http.StatusInternalServerError:
		slog.Warn("upstream failure", "error", err, "path", r.URL.Path, "correlationId", corrID)
	}
	WriteError(w, status, NewError(code, msg, corrID))
}
