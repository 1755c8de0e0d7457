package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-games/landsync/internal/errs"
	"github.com/meridian-games/landsync/internal/model"
)

// lockExternalIDAlloc serializes external id allocation across provisioners.
const lockExternalIDAlloc = int64(0x6c616e6473796e63)

const accountColumns = `account_id, external_id, display_name, email, credential, bearer_token,
device_fingerprint, save_token, save_path, last_active_at, created_at`

// AccountRepo implements AccountRepository using PostgreSQL.
type AccountRepo struct {
	db      *DB
	extBase int64 // lowest external id handed out
}

// NewAccountRepo constructs an account repository allocating external ids from extBase.
func NewAccountRepo(db *DB, extBase int64) *AccountRepo {
	return &AccountRepo{db: db, extBase: extBase}
}

// Create allocates the next external id under an advisory lock and inserts the account.
func (r *AccountRepo) Create(
	ctx context.Context, seed model.Seed, bearerToken, credential string,
) (a *model.Account, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
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

	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, lockExternalIDAlloc); err != nil {
		return nil, err
	}

	var extID int64
	const nextID = `SELECT GREATEST(COALESCE(MAX(external_id)+1, 0), $1) FROM accounts`
	if err = tx.QueryRow(ctx, nextID, r.extBase).Scan(&extID); err != nil {
		return nil, err
	}

	const ins = `
INSERT INTO accounts (external_id, display_name, email, credential, bearer_token, device_fingerprint)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING account_id, last_active_at, created_at`
	a = &model.Account{
		ExternalID:        extID,
		DisplayName:       seed.DisplayName,
		Email:             seed.Email,
		Credential:        credential,
		BearerToken:       bearerToken,
		DeviceFingerprint: seed.DeviceFingerprint,
	}
	err = tx.QueryRow(ctx, ins,
		extID, seed.DisplayName, seed.Email, credential, bearerToken, seed.DeviceFingerprint,
	).Scan(&a.AccountID, &a.LastActiveAt, &a.CreatedAt)
	if isUniqueViolation(err) {
		return nil, errs.ErrStoreUnavailable
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByToken resolves a bearer token to its account.
func (r *AccountRepo) GetByToken(ctx context.Context, token string) (*model.Account, error) {
	return r.getBy(ctx, `SELECT `+accountColumns+` FROM accounts WHERE bearer_token=$1`, token)
}

// GetByExternalID loads an account by its public document key.
func (r *AccountRepo) GetByExternalID(ctx context.Context, externalID int64) (*model.Account, error) {
	return r.getBy(ctx, `SELECT `+accountColumns+` FROM accounts WHERE external_id=$1`, externalID)
}

// GetByFingerprint returns the account provisioned for a device, if any.
func (r *AccountRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*model.Account, error) {
	return r.getBy(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE device_fingerprint=$1 ORDER BY account_id LIMIT 1`,
		fingerprint)
}

func (r *AccountRepo) getBy(ctx context.Context, q string, arg any) (*model.Account, error) {
	row := r.db.Pool.QueryRow(ctx, q, arg)
	var a model.Account
	if err := row.Scan(
		&a.AccountID, &a.ExternalID, &a.DisplayName, &a.Email, &a.Credential, &a.BearerToken,
		&a.DeviceFingerprint, &a.SaveToken, &a.SavePath, &a.LastActiveAt, &a.CreatedAt,
	); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	return &a, nil
}

// SetSaveToken rotates the stored save token unconditionally.
func (r *AccountRepo) SetSaveToken(ctx context.Context, accountID int64, token string) error {
	const q = `UPDATE accounts SET save_token=$2 WHERE account_id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, accountID, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SaveDocument performs one atomic document write. The account row lock
// serializes writers per account; writers to different accounts do not block
// each other. The mailbox delete rides the same transaction so a save always
// absorbs all queued events. When the presented token passed the gate it is
// consumed: the same transaction installs nextToken, so replaying the old
// token conflicts.
func (r *AccountRepo) SaveDocument(
	ctx context.Context, accountID int64, presentedToken, nextToken, savePath string,
	write func(ctx context.Context) error,
) (rotated bool, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
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

	const sel = `SELECT save_token FROM accounts WHERE account_id=$1 FOR UPDATE`
	var stored string
	if err = tx.QueryRow(ctx, sel, accountID).Scan(&stored); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, errs.ErrNotFound
		}
		return false, err
	}
	// The token gate applies only when both sides hold one; the tokenless
	// path is the protocol's best-effort incremental update.
	if stored != "" && presentedToken != "" && stored != presentedToken {
		return false, errs.ErrConflict
	}

	if err = write(ctx); err != nil {
		return false, err
	}

	if stored != "" && presentedToken != "" {
		const upd = `UPDATE accounts SET save_path=$2, save_token=$3, last_active_at=now() WHERE account_id=$1`
		if _, err = tx.Exec(ctx, upd, accountID, savePath, nextToken); err != nil {
			return false, err
		}
		rotated = true
	} else {
		const upd = `UPDATE accounts SET save_path=$2, last_active_at=now() WHERE account_id=$1`
		if _, err = tx.Exec(ctx, upd, accountID, savePath); err != nil {
			return false, err
		}
	}
	const del = `DELETE FROM land_events WHERE owner_id=$1`
	if _, err = tx.Exec(ctx, del, accountID); err != nil {
		return false, err
	}
	return rotated, nil
}

// TouchLastActive refreshes last_active_at.
func (r *AccountRepo) TouchLastActive(ctx context.Context, accountID int64) error {
	const q = `UPDATE accounts SET last_active_at=now() WHERE account_id=$1`
	_, err := r.db.Pool.Exec(ctx, q, accountID)
	return err
}
