// Package common defines shared constants and sentinel errors used across
// the identity core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors. Every logical token rejection is reported as
	// ErrInvalidToken so callers cannot tell an unknown token from a
	// consumed one.
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Signing-key errors.
	ErrNoActiveKey = errors.New("no active signing key")
)
