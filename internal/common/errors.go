// Package common defines shared constants and sentinel errors used across
// the CivicSync store, services and transports. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrorNotFound           = errors.New("not found")
	ErrorConflict           = errors.New("conflict")
	ErrorBackendUnavailable = errors.New("backend unavailable")

	// Lifecycle errors.
	ErrorIllegalTransition = errors.New("illegal status transition")
	ErrorPermission        = errors.New("permission denied")

	// Service-level errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")
	ErrorInternal     = errors.New("internal error")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
