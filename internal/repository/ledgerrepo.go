package repository

import (
	"context"

	"github.com/meridian-games/landsync/internal/model"
)

// LedgerRepository persists per-account currency totals.
type LedgerRepository interface {
	// Ensure materializes the row if absent, seeded with startingBalance as awarded.
	Ensure(ctx context.Context, accountID, startingBalance int64) (*model.CurrencyAccount, error)

	// AddAwarded adds amount to total_awarded and recomputes balance.
	AddAwarded(ctx context.Context, accountID, amount int64) (*model.CurrencyAccount, error)

	// SetBalance overrides balance absolutely, bypassing delta accounting.
	SetBalance(ctx context.Context, accountID, amount int64) error
}
