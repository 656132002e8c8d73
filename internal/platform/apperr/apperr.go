// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for Vitalis.

It provides a rich error type that bridges the gap between low-level Domain/Storage
errors and high-level HTTP responses.

Architecture:

  - AppError: A struct containing machine-readable ErrorCode and user-friendly messages.
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.
  - Kinds: Vault-specific kinds (challenge, decryption, state) live next to the generic ones.

Every error that leaves the service layer should be wrapped as an [AppError] to ensure
consistent API responses.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// # Error Codes

// Machine-readable codes shared by the API and its clients.
const (
	CodeNotFound                  = "NOT_FOUND"
	CodeValidation                = "VALIDATION_ERROR"
	CodeRateLimited               = "RATE_LIMITED"
	CodeInternal                  = "INTERNAL_ERROR"
	CodeServiceUnavailable        = "SERVICE_UNAVAILABLE"
	CodeChallengeNotFound         = "CHALLENGE_NOT_FOUND"
	CodeChallengeExpired          = "CHALLENGE_EXPIRED"
	CodeChallengeAttemptsExceeded = "CHALLENGE_ATTEMPTS_EXCEEDED"
	CodeChallengeAlreadyUsed      = "CHALLENGE_ALREADY_USED"
	CodeChallengeMismatch         = "CHALLENGE_MISMATCH"
	CodeDataSourceUnavailable     = "DATA_SOURCE_UNAVAILABLE"
	CodeDecryptionFailed          = "DECRYPTION_FAILED"
	CodeStateConflict             = "STATE_CONFLICT"
)

// AppError is the canonical error type for the Vitalis API.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries, cipher state).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "STATE_CONFLICT").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// Is matches another [*AppError] with the same Code, so an error built by a
// constructor compares equal to any other error of the same kind.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// New creates an [AppError] with an arbitrary code.
func New(code, msg string, status int) *AppError {
	return &AppError{
		Code:       code,
		Message:    msg,
		HTTPStatus: status,
	}
}

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Account") // Returns "Account not found"
func NotFound(resource string) *AppError {
	return New(CodeNotFound, resource+" not found", http.StatusNotFound)
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return New(CodeRateLimited, fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds), http.StatusTooManyRequests)
}

// StateConflict creates a 409 [AppError] for an operation attempted out of order.
func StateConflict(msg string) *AppError {
	return New(CodeStateConflict, msg, http.StatusConflict)
}

// DecryptionFailed creates the single 401 [AppError] returned for every failed
// decryption. Wrong keys, bad tokens, and tampered ciphertext are indistinguishable.
func DecryptionFailed(cause error) *AppError {
	return &AppError{
		Code:       CodeDecryptionFailed,
		Message:    "Invalid credentials",
		HTTPStatus: http.StatusUnauthorized,
		Cause:      cause,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// ServiceUnavailable creates a retryable 503 [AppError].
func ServiceUnavailable(msg string, cause error) *AppError {
	return &AppError{
		Code:       CodeServiceUnavailable,
		Message:    msg,
		HTTPStatus: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// DataSourceUnavailable creates a 503 [AppError] for a failed agent data fetch.
func DataSourceUnavailable(cause error) *AppError {
	return &AppError{
		Code:       CodeDataSourceUnavailable,
		Message:    "Health data is temporarily unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
