package repository

import (
	"context"

	"github.com/meridian-games/landsync/internal/model"
)

// MailboxRepository persists the per-owner append-only queue of visitor actions.
// Clearing the queue is part of the document save transaction and lives on
// AccountRepository.SaveDocument.
type MailboxRepository interface {
	// Enqueue appends one envelope to the owner's queue.
	Enqueue(ctx context.Context, env model.EventEnvelope) error

	// Drain returns the full queue in insertion order without consuming it.
	Drain(ctx context.Context, ownerID int64) ([]model.EventEnvelope, error)
}
