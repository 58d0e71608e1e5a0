// Package common defines shared constants and sentinel errors used across
// storage, service and transport layers. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrShortIDConflict = errors.New("short id conflict")

	// Service-level errors, mapped one-to-one onto transport replies.
	ErrorBadRequest   = errors.New("bad request")
	ErrorForbidden    = errors.New("forbidden")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorInternal     = errors.New("internal error")

	// Storage errors.
	ErrChunkCorrupted = errors.New("chunk checksum mismatch")
	ErrStoreClosed    = errors.New("stream closed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// BadRequestError is an ErrorBadRequest with a reason safe to show to clients.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string { return e.Reason }

func (e *BadRequestError) Is(target error) bool { return target == ErrorBadRequest }
