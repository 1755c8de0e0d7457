package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-games/landsync/internal/errs"
	"github.com/meridian-games/landsync/internal/model"
)

// pairLock takes a transaction-scoped advisory lock on the unordered account
// pair, guarding concurrent state-machine transitions from both directions.
// The pair is hashed to a single bigint key; the two-int overload would
// overflow once account ids pass 2^31-1.
const pairLock = `SELECT pg_advisory_xact_lock(hashtextextended(least($1,$2)::text || ':' || greatest($1,$2)::text, 0))`

// FriendRepo implements FriendRepository using PostgreSQL.
type FriendRepo struct{ db *DB }

// NewFriendRepo constructs a friend repository.
func NewFriendRepo(db *DB) *FriendRepo { return &FriendRepo{db: db} }

// Request inserts a pending edge unless one exists in either direction,
// returning the existing status idempotently.
func (r *FriendRepo) Request(ctx context.Context, fromID, toID int64) (st model.FriendStatus, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.FriendNone, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	if _, err = tx.Exec(ctx, pairLock, fromID, toID); err != nil {
		return model.FriendNone, err
	}

	const sel = `
SELECT status FROM friend_edges
WHERE (owner_id=$1 AND friend_id=$2) OR (owner_id=$2 AND friend_id=$1)
LIMIT 1`
	var existing string
	scanErr := tx.QueryRow(ctx, sel, fromID, toID).Scan(&existing)
	switch {
	case scanErr == nil:
		return model.FriendStatus(existing), nil
	case errors.Is(scanErr, pgx.ErrNoRows):
		const ins = `INSERT INTO friend_edges (owner_id, friend_id, status) VALUES ($1,$2,'pending')`
		if _, err = tx.Exec(ctx, ins, fromID, toID); err != nil {
			return model.FriendNone, err
		}
		return model.FriendPending, nil
	default:
		return model.FriendNone, scanErr
	}
}

// Accept promotes the pending edge and writes the reciprocal accepted row in
// one transaction. A second accept on an already-accepted pair succeeds silently.
func (r *FriendRepo) Accept(ctx context.Context, ownerID, requesterID int64) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	if _, err = tx.Exec(ctx, pairLock, ownerID, requesterID); err != nil {
		return err
	}

	const upd = `
UPDATE friend_edges SET status='accepted'
WHERE owner_id=$1 AND friend_id=$2 AND status='pending'`
	tag, err := tx.Exec(ctx, upd, requesterID, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		const chk = `
SELECT EXISTS(
  SELECT 1 FROM friend_edges WHERE owner_id=$1 AND friend_id=$2 AND status='accepted')`
		var accepted bool
		if err = tx.QueryRow(ctx, chk, requesterID, ownerID).Scan(&accepted); err != nil {
			return err
		}
		if accepted {
			return nil // double accept
		}
		return errs.ErrNotFound
	}

	const ins = `
INSERT INTO friend_edges (owner_id, friend_id, status) VALUES ($1,$2,'accepted')
ON CONFLICT (owner_id, friend_id) DO UPDATE SET status='accepted'`
	if _, err = tx.Exec(ctx, ins, ownerID, requesterID); err != nil {
		return err
	}
	return nil
}

// Reject deletes the pending edge; resolved pairs are left untouched.
func (r *FriendRepo) Reject(ctx context.Context, ownerID, requesterID int64) error {
	const q = `DELETE FROM friend_edges WHERE owner_id=$1 AND friend_id=$2 AND status='pending'`
	_, err := r.db.Pool.Exec(ctx, q, requesterID, ownerID)
	return err
}

// Remove deletes both directional rows in one statement.
func (r *FriendRepo) Remove(ctx context.Context, aID, bID int64) error {
	const q = `
DELETE FROM friend_edges
WHERE (owner_id=$1 AND friend_id=$2) OR (owner_id=$2 AND friend_id=$1)`
	_, err := r.db.Pool.Exec(ctx, q, aID, bID)
	return err
}

// ListAccepted returns a page of accepted friends ordered by createdAt descending.
func (r *FriendRepo) ListAccepted(
	ctx context.Context, ownerID int64, offset, limit int,
) ([]model.FriendEntry, int, error) {
	const cnt = `SELECT COUNT(*) FROM friend_edges WHERE owner_id=$1 AND status='accepted'`
	var total int
	if err := r.db.Pool.QueryRow(ctx, cnt, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `
SELECT a.account_id, a.external_id, a.display_name, e.created_at
FROM friend_edges e
JOIN accounts a ON a.account_id = e.friend_id
WHERE e.owner_id=$1 AND e.status='accepted'
ORDER BY e.created_at DESC
OFFSET $2 LIMIT $3`
	rows, err := r.db.Pool.Query(ctx, q, ownerID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := make([]model.FriendEntry, 0, limit)
	for rows.Next() {
		var e model.FriendEntry
		if err = rows.Scan(&e.AccountID, &e.ExternalID, &e.DisplayName, &e.Since); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// IsAccepted reports whether the directed accepted edge exists.
func (r *FriendRepo) IsAccepted(ctx context.Context, aID, bID int64) (bool, error) {
	const q = `
SELECT EXISTS(
  SELECT 1 FROM friend_edges WHERE owner_id=$1 AND friend_id=$2 AND status='accepted')`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, aID, bID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
