package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-games/landsync/internal/errs"
	"github.com/meridian-games/landsync/internal/model"
)

const ledgerColumns = `account_id, total_awarded, total_purchased, balance, updated_at`

// LedgerRepo implements LedgerRepository using PostgreSQL.
type LedgerRepo struct{ db *DB }

// NewLedgerRepo constructs a ledger repository.
func NewLedgerRepo(db *DB) *LedgerRepo { return &LedgerRepo{db: db} }

// Ensure lazily materializes the currency row seeded with the starting balance.
func (r *LedgerRepo) Ensure(ctx context.Context, accountID, startingBalance int64) (*model.CurrencyAccount, error) {
	const ins = `
INSERT INTO currency_accounts (account_id, total_awarded, total_purchased, balance)
VALUES ($1, $2, 0, $2)
ON CONFLICT (account_id) DO NOTHING`
	if _, err := r.db.Pool.Exec(ctx, ins, accountID, startingBalance); err != nil {
		return nil, err
	}
	const sel = `SELECT ` + ledgerColumns + ` FROM currency_accounts WHERE account_id=$1`
	var c model.CurrencyAccount
	if err := r.db.Pool.QueryRow(ctx, sel, accountID).
		Scan(&c.AccountID, &c.TotalAwarded, &c.TotalPurchased, &c.Balance, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// AddAwarded adds amount to total_awarded and recomputes balance in one statement.
func (r *LedgerRepo) AddAwarded(ctx context.Context, accountID, amount int64) (*model.CurrencyAccount, error) {
	const q = `
UPDATE currency_accounts
SET total_awarded = total_awarded + $2,
    balance = total_awarded + $2 + total_purchased,
    updated_at = now()
WHERE account_id=$1
RETURNING ` + ledgerColumns
	var c model.CurrencyAccount
	if err := r.db.Pool.QueryRow(ctx, q, accountID, amount).
		Scan(&c.AccountID, &c.TotalAwarded, &c.TotalPurchased, &c.Balance, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// SetBalance overrides the balance absolutely; used by dashboard tooling only.
func (r *LedgerRepo) SetBalance(ctx context.Context, accountID, amount int64) error {
	const q = `UPDATE currency_accounts SET balance=$2, updated_at=now() WHERE account_id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, accountID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
