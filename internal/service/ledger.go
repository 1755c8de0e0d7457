package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-games/landsync/internal/model"
	"github.com/meridian-games/landsync/internal/repository"
)

const defaultMaxDeltaBatch = 500

// LedgerService applies currency deltas over per-account monotonic totals.
type LedgerService interface {
	// Ensure lazily materializes the currency record, seeded with the
	// configured starting balance.
	Ensure(ctx context.Context, accountID int64) (*model.CurrencyAccount, error)
	// ApplyDeltas sums the batch into totalAwarded and echoes one processed
	// acknowledgment per input delta id. The batch arrives already
	// deduplicated; an empty batch is a no-op.
	ApplyDeltas(ctx context.Context, accountID int64, deltas []model.Delta) ([]model.ProcessedDelta, *model.CurrencyAccount, error)
	// SetBalance is the administrative absolute override.
	SetBalance(ctx context.Context, accountID, amount int64) error
}

type LedgerServiceImpl struct {
	repo            repository.LedgerRepository
	startingBalance int64
	maxBatch        int
}

// NewLedgerService constructs LedgerService with the configured starting balance.
func NewLedgerService(repo repository.LedgerRepository, startingBalance int64, maxBatch int) *LedgerServiceImpl {
	if maxBatch <= 0 {
		maxBatch = defaultMaxDeltaBatch
	}
	return &LedgerServiceImpl{repo: repo, startingBalance: startingBalance, maxBatch: maxBatch}
}

// Ensure materializes the currency row if absent.
func (s *LedgerServiceImpl) Ensure(ctx context.Context, accountID int64) (*model.CurrencyAccount, error) {
	if accountID == 0 {
		return nil, errors.New("validation: empty account id")
	}
	return s.repo.Ensure(ctx, accountID, s.startingBalance)
}

// ApplyDeltas applies the batch as one awarded increment.
func (s *LedgerServiceImpl) ApplyDeltas(
	ctx context.Context, accountID int64, deltas []model.Delta,
) ([]model.ProcessedDelta, *model.CurrencyAccount, error) {
	if accountID == 0 {
		return nil, nil, errors.New("validation: empty account id")
	}
	if len(deltas) > s.maxBatch {
		return nil, nil, fmt.Errorf("validation: batch too large (%d > %d)", len(deltas), s.maxBatch)
	}

	acct, err := s.repo.Ensure(ctx, accountID, s.startingBalance)
	if err != nil {
		return nil, nil, err
	}
	if len(deltas) == 0 {
		return []model.ProcessedDelta{}, acct, nil
	}

	var sum int64
	acks := make([]model.ProcessedDelta, 0, len(deltas))
	for i, d := range deltas {
		if d.ID == "" {
			return nil, nil, fmt.Errorf("validation: delta[%d] empty id", i)
		}
		sum += d.Amount
		acks = append(acks, model.ProcessedDelta{ID: d.ID, Processed: true})
	}

	acct, err = s.repo.AddAwarded(ctx, accountID, sum)
	if err != nil {
		return nil, nil, err
	}
	return acks, acct, nil
}

// SetBalance overrides the balance absolutely.
func (s *LedgerServiceImpl) SetBalance(ctx context.Context, accountID, amount int64) error {
	if accountID == 0 {
		return errors.New("validation: empty account id")
	}
	if _, err := s.repo.Ensure(ctx, accountID, s.startingBalance); err != nil {
		return err
	}
	return s.repo.SetBalance(ctx, accountID, amount)
}
