// Package limiter defines interfaces and implementations for credential-check rate limiting.
package limiter

import (
	"context"
	"time"
)

// Limiter controls repeated credential presentations and temporary lockouts.
type Limiter interface {
	// Allow reports whether a credential check is currently allowed and optional retry-after.
	Allow(ctx context.Context, externalID int64, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful credential match.
	Success(ctx context.Context, externalID int64, ipHash []byte) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, externalID int64, ipHash []byte) (bool, time.Duration, error)
}
