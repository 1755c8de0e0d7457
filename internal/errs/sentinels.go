// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrUnauthorized indicates a missing, unknown, or mismatched credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the requested account, document, or edge does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a save-token mismatch on a conditional document write.
	ErrConflict = errors.New("save token conflict")

	// ErrForbidden indicates a cross-account access attempt without an accepted friendship.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates a temporary lockout after repeated credential failures.
	ErrRateLimited = errors.New("rate limited")

	// ErrStoreUnavailable indicates an underlying persistence failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)
