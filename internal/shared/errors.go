package shared

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthKind classifies authorization and identity failures.
type AuthKind int

// Failure kinds surfaced to HTTP clients.
const (
	KindCredentialMissing AuthKind = iota + 1
	KindCredentialExpired
	KindCredentialInvalid
	KindProfileProvisioningFailed
	KindAuthUnavailable
	KindAuthRequired
	KindPermissionDenied
	KindInsufficientRole
	KindInvalidRole
	KindNotFound
	KindRateLimited
)

type kindInfo struct {
	code   string
	label  string
	status int
}

var kindTable = map[AuthKind]kindInfo{
	KindCredentialMissing:         {"AUTH_TOKEN_MISSING", "Authentication required", http.StatusUnauthorized},
	KindCredentialExpired:         {"AUTH_TOKEN_EXPIRED", "Token expired", http.StatusUnauthorized},
	KindCredentialInvalid:         {"AUTH_TOKEN_INVALID", "Invalid token", http.StatusForbidden},
	KindProfileProvisioningFailed: {"PROFILE_PROVISIONING_FAILED", "Profile unavailable", http.StatusForbidden},
	KindAuthUnavailable:           {"AUTH_UNAVAILABLE", "Authentication unavailable", http.StatusServiceUnavailable},
	KindAuthRequired:              {"AUTH_REQUIRED", "Authentication required", http.StatusUnauthorized},
	KindPermissionDenied:          {"PERMISSION_DENIED", "Insufficient permissions", http.StatusForbidden},
	KindInsufficientRole:          {"INSUFFICIENT_ROLE", "Insufficient role", http.StatusForbidden},
	KindInvalidRole:               {"INVALID_ROLE", "Invalid role", http.StatusBadRequest},
	KindNotFound:                  {"NOT_FOUND", "Not found", http.StatusNotFound},
	KindRateLimited:               {"RATE_LIMITED", "Too many requests", http.StatusTooManyRequests},
}

// Code returns the machine readable error code.
func (k AuthKind) Code() string { return kindTable[k].code }

// Label returns the short human readable error label.
func (k AuthKind) Label() string { return kindTable[k].label }

// Status returns the HTTP status associated with the kind.
func (k AuthKind) Status() int {
	if info, ok := kindTable[k]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// AuthError is a terminal identity or authorization failure.
type AuthError struct {
	Kind    AuthKind
	Message string
	Context map[string]any
	Err     error
}

// Error implements error.
func (e *AuthError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Label()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Code(), msg, e.Err)
	}
	return e.Kind.Code() + ": " + msg
}

// Unwrap exposes the underlying cause.
func (e *AuthError) Unwrap() error { return e.Err }

// Is matches on kind so sentinels work with errors.Is.
func (e *AuthError) Is(target error) bool {
	var other *AuthError
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// NewAuthError builds an AuthError with an optional payload context.
func NewAuthError(kind AuthKind, message string, ctx map[string]any) *AuthError {
	return &AuthError{Kind: kind, Message: message, Context: ctx}
}

// WrapAuthError attaches a cause to a failure kind.
func WrapAuthError(kind AuthKind, message string, err error) *AuthError {
	return &AuthError{Kind: kind, Message: message, Err: err}
}

// Sentinels for errors.Is comparisons.
var (
	ErrCredentialMissing         = &AuthError{Kind: KindCredentialMissing}
	ErrCredentialExpired         = &AuthError{Kind: KindCredentialExpired}
	ErrCredentialInvalid         = &AuthError{Kind: KindCredentialInvalid}
	ErrProfileProvisioningFailed = &AuthError{Kind: KindProfileProvisioningFailed}
	ErrAuthUnavailable           = &AuthError{Kind: KindAuthUnavailable}
	ErrAuthRequired              = &AuthError{Kind: KindAuthRequired}
	ErrPermissionDenied          = &AuthError{Kind: KindPermissionDenied}
	ErrInsufficientRole          = &AuthError{Kind: KindInsufficientRole}
	ErrInvalidRole               = &AuthError{Kind: KindInvalidRole}
	ErrNotFound                  = &AuthError{Kind: KindNotFound}
)

// ErrValidation marks malformed client input.
var ErrValidation = errors.New("validation failed")

// ValidationError is malformed client input carrying a specific error code.
type ValidationError struct {
	Code    string
	Message string
	Fields  map[string]string
}

// NewValidationError builds a ValidationError. An empty code means VALIDATION_ERROR.
func NewValidationError(code, message string) *ValidationError {
	if code == "" {
		code = "VALIDATION_ERROR"
	}
	return &ValidationError{Code: code, Message: message}
}

// Error implements error.
func (e *ValidationError) Error() string { return e.Code + ": " + e.Message }

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
