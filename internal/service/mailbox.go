package service

import (
	"context"
	"errors"

	"github.com/meridian-games/landsync/internal/model"
	"github.com/meridian-games/landsync/internal/repository"
)

// MailboxService queues visitor actions for asynchronous owner consumption.
// Clearing happens inside the document save transaction, so an enqueue racing
// a save lands either before the clear (absorbed) or after it (kept for the
// next save); neither corrupts the queue.
type MailboxService interface {
	// Enqueue appends one visitor action to the owner's queue.
	Enqueue(ctx context.Context, fromID, ownerID int64, payload []byte) error
	// Drain returns the full queue in insertion order without consuming it.
	// An unreadable queue yields an empty sequence, never an error: the
	// payloads are opaque and the owner's next save is authoritative.
	Drain(ctx context.Context, ownerID int64) ([]model.EventEnvelope, error)
}

type MailboxServiceImpl struct {
	repo repository.MailboxRepository
}

// NewMailboxService constructs MailboxService.
func NewMailboxService(repo repository.MailboxRepository) *MailboxServiceImpl {
	return &MailboxServiceImpl{repo: repo}
}

// Enqueue appends one envelope to the owner's queue.
func (s *MailboxServiceImpl) Enqueue(ctx context.Context, fromID, ownerID int64, payload []byte) error {
	if fromID == 0 || ownerID == 0 {
		return errors.New("validation: empty account id")
	}
	if len(payload) == 0 {
		return errors.New("validation: empty payload")
	}
	return s.repo.Enqueue(ctx, model.EventEnvelope{
		FromAccount: fromID,
		ToAccount:   ownerID,
		Payload:     payload,
	})
}

// Drain reads the queue non-destructively, recovering unreadable state as empty.
func (s *MailboxServiceImpl) Drain(ctx context.Context, ownerID int64) ([]model.EventEnvelope, error) {
	if ownerID == 0 {
		return nil, errors.New("validation: empty owner id")
	}
	envs, err := s.repo.Drain(ctx, ownerID)
	if err != nil {
		return []model.EventEnvelope{}, nil
	}
	if envs == nil {
		envs = []model.EventEnvelope{}
	}
	return envs, nil
}
