// Package apperror provides structured error handling for the fiscal platform.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes grouped by concern
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"
	CodeTimeout  = "TIMEOUT_ERROR"

	// Validation errors (400)
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidInput = "INVALID_INPUT"

	// Credential and signing errors (422) - operator attention required,
	// never retried automatically
	CodeCertificate = "CERTIFICATE_ERROR"
	CodeSigning     = "SIGNING_ERROR"

	// Ticket acquisition errors (502)
	CodeTicketRequest = "TICKET_REQUEST_ERROR"
	CodeTicketParse   = "TICKET_PARSE_ERROR"

	// Invoice authorization errors
	CodeAmountLimitExceeded   = "AMOUNT_LIMIT_EXCEEDED"
	CodeSequenceNotConfigured = "SEQUENCE_NOT_CONFIGURED"
	CodeSequenceMismatch      = "SEQUENCE_MISMATCH"
	CodeAuthorizationRejected = "AUTHORIZATION_REJECTED"
	CodeAuthorizationObserved = "AUTHORIZATION_OBSERVED"
	CodeAmbiguousSubmission   = "AMBIGUOUS_SUBMISSION"
	CodeSequenceBlocked       = "SEQUENCE_BLOCKED"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict = "CONFLICT"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, invoice numbers, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewCertificate creates a credential bundle error.
// Covers missing bundles, malformed PKCS#12 data and wrong passwords.
func NewCertificate(message string, err error) *AppError {
	return &AppError{
		Code:       CodeCertificate,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Err:        err,
	}
}

// NewSigning creates a CMS signing error.
func NewSigning(err error) *AppError {
	return &AppError{
		Code:       CodeSigning,
		Message:    "failed to sign authentication request",
		HTTPStatus: http.StatusUnprocessableEntity,
		Err:        err,
	}
}

// NewTicketRequest creates a ticket transport error (HTTP failure or timeout
// against the authority's login endpoint).
func NewTicketRequest(message string, err error) *AppError {
	return &AppError{
		Code:       CodeTicketRequest,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewTicketParse creates an error for malformed ticket responses.
func NewTicketParse(message string, err error) *AppError {
	return &AppError{
		Code:       CodeTicketParse,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewAmountLimitExceeded creates an error for amounts above the authority ceiling.
// Raised locally, before any network round-trip.
func NewAmountLimitExceeded(field, value string) *AppError {
	return &AppError{
		Code:       CodeAmountLimitExceeded,
		Message:    "amount exceeds the limit allowed by the tax authority",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"field": field, "value": value},
	}
}

// NewSequenceNotConfigured creates an error for allocation on a missing or
// inactive counter.
func NewSequenceNotConfigured(storeID, pointOfSale, invoiceType string) *AppError {
	return &AppError{
		Code:       CodeSequenceNotConfigured,
		Message:    fmt.Sprintf("sequence %s is not configured for %s/%s", invoiceType, storeID, pointOfSale),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"store_id":      storeID,
			"point_of_sale": pointOfSale,
			"invoice_type":  invoiceType,
		},
	}
}

// NewSequenceMismatch creates an error for a local/authority counter
// desynchronization. Carries the authority's expected next number.
func NewSequenceMismatch(submitted, expected int64) *AppError {
	return &AppError{
		Code:       CodeSequenceMismatch,
		Message:    "submitted invoice number does not match the authority's next expected number",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"submitted_number": submitted,
			"expected_number":  expected,
		},
	}
}

// NewSequenceBlocked flags a counter pending manual review after a
// reconciliation found the authority behind the local counter.
func NewSequenceBlocked(storeID, pointOfSale, invoiceType string) *AppError {
	return &AppError{
		Code:       CodeSequenceBlocked,
		Message:    "sequence blocked pending manual review",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"store_id":      storeID,
			"point_of_sale": pointOfSale,
			"invoice_type":  invoiceType,
		},
	}
}

// NewAuthorizationRejected surfaces an authority rejection verbatim.
func NewAuthorizationRejected(reasonCode int, message string) *AppError {
	return &AppError{
		Code:       CodeAuthorizationRejected,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"reason_code": reasonCode},
	}
}

// NewAmbiguousSubmission marks a submission whose outcome is unknown
// (network failure after send). The allocated number must be reconciled
// manually; it is never silently retried nor re-issued.
func NewAmbiguousSubmission(invoiceNumber int64, err error) *AppError {
	return &AppError{
		Code:       CodeAmbiguousSubmission,
		Message:    "submission outcome unknown; invoice number requires manual reconciliation",
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"invoice_number": invoiceNumber},
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode checks if error carries the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsSequenceNotConfigured checks if error is CodeSequenceNotConfigured
func IsSequenceNotConfigured(err error) bool {
	return HasCode(err, CodeSequenceNotConfigured)
}
