// Package common defines shared constants and sentinel errors used across
// the diycloud components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already exists in ledger")
	ErrUnknownUser       = errors.New("unknown user")

	// Store-level errors.
	ErrSchemaMissing    = errors.New("schema definition missing")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrStoreCorrupt     = errors.New("store failed integrity check")

	// Workflow-level errors.
	ErrUserAlreadyExists = errors.New("system account already exists")
	ErrValidation        = errors.New("validation error")
	ErrExternal          = errors.New("external command failed")
	ErrPartiallyApplied  = errors.New("ledger recorded but entitlements not applied")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
