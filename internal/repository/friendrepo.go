package repository

import (
	"context"

	"github.com/meridian-games/landsync/internal/model"
)

// FriendRepository persists directed friend edges with a request/accept state machine.
// All mutations on the same unordered pair are serialized by the implementation.
type FriendRepository interface {
	// Request inserts (fromID, toID, pending) unless an edge already exists in
	// either direction, in which case the existing status is returned unchanged.
	Request(ctx context.Context, fromID, toID int64) (model.FriendStatus, error)

	// Accept promotes (requesterID, ownerID, pending) to accepted and writes the
	// reciprocal accepted row in the same transaction.
	Accept(ctx context.Context, ownerID, requesterID int64) error

	// Reject deletes the pending row; a no-op if already resolved.
	Reject(ctx context.Context, ownerID, requesterID int64) error

	// Remove deletes both directional rows regardless of status; idempotent.
	Remove(ctx context.Context, aID, bID int64) error

	// ListAccepted returns one page of accepted friends, newest first, plus the total.
	ListAccepted(ctx context.Context, ownerID int64, offset, limit int) ([]model.FriendEntry, int, error)

	// IsAccepted reports whether aID has an accepted edge to bID.
	IsAccepted(ctx context.Context, aID, bID int64) (bool, error)
}
