package service

import (
	"context"
	"errors"

	"github.com/meridian-games/landsync/internal/model"
	"github.com/meridian-games/landsync/internal/repository"
)

// Friend listing page bounds.
const (
	defaultFriendPage = 20
	maxFriendPage     = 50
)

// FriendService drives the request/accept/reject/remove state machine.
// Duplicate operations succeed silently; the protocol's clients retry
// aggressively.
type FriendService interface {
	// Request asks for a friendship; existing edges in either direction are
	// returned as-is.
	Request(ctx context.Context, fromID, toID int64) (model.FriendStatus, error)
	// Accept turns a pending request into a symmetric accepted pair.
	Accept(ctx context.Context, ownerID, requesterID int64) error
	// Reject drops a pending request; a no-op once resolved.
	Reject(ctx context.Context, ownerID, requesterID int64) error
	// Remove dissolves the pair in both directions.
	Remove(ctx context.Context, aID, bID int64) error
	// ListAccepted pages through accepted friends, newest first.
	ListAccepted(ctx context.Context, ownerID int64, offset, limit int) ([]model.FriendEntry, int, error)
	// IsAccepted gates cross-account document and mailbox visibility.
	IsAccepted(ctx context.Context, aID, bID int64) (bool, error)
}

type FriendServiceImpl struct {
	repo repository.FriendRepository
}

// NewFriendService constructs FriendService.
func NewFriendService(repo repository.FriendRepository) *FriendServiceImpl {
	return &FriendServiceImpl{repo: repo}
}

func validPair(a, b int64) error {
	if a == 0 || b == 0 {
		return errors.New("validation: empty account id")
	}
	if a == b {
		return errors.New("validation: self pair")
	}
	return nil
}

// Request inserts a pending edge or echoes the existing status.
func (s *FriendServiceImpl) Request(ctx context.Context, fromID, toID int64) (model.FriendStatus, error) {
	if err := validPair(fromID, toID); err != nil {
		return model.FriendNone, err
	}
	return s.repo.Request(ctx, fromID, toID)
}

// Accept promotes the pending edge; both reciprocal rows commit together.
func (s *FriendServiceImpl) Accept(ctx context.Context, ownerID, requesterID int64) error {
	if err := validPair(ownerID, requesterID); err != nil {
		return err
	}
	return s.repo.Accept(ctx, ownerID, requesterID)
}

// Reject deletes the pending edge if still pending.
func (s *FriendServiceImpl) Reject(ctx context.Context, ownerID, requesterID int64) error {
	if err := validPair(ownerID, requesterID); err != nil {
		return err
	}
	return s.repo.Reject(ctx, ownerID, requesterID)
}

// Remove deletes both directions; idempotent.
func (s *FriendServiceImpl) Remove(ctx context.Context, aID, bID int64) error {
	if err := validPair(aID, bID); err != nil {
		return err
	}
	return s.repo.Remove(ctx, aID, bID)
}

// ListAccepted clamps paging inputs and delegates.
func (s *FriendServiceImpl) ListAccepted(ctx context.Context, ownerID int64, offset, limit int) ([]model.FriendEntry, int, error) {
	if ownerID == 0 {
		return nil, 0, errors.New("validation: empty owner id")
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultFriendPage
	}
	if limit > maxFriendPage {
		limit = maxFriendPage
	}
	return s.repo.ListAccepted(ctx, ownerID, offset, limit)
}

// IsAccepted reports the accepted edge; self is handled by the orchestrator.
func (s *FriendServiceImpl) IsAccepted(ctx context.Context, aID, bID int64) (bool, error) {
	if aID == 0 || bID == 0 {
		return false, errors.New("validation: empty account id")
	}
	return s.repo.IsAccepted(ctx, aID, bID)
}
