package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/meridian-games/landsync/internal/errs"
	"github.com/meridian-games/landsync/internal/model"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func TestAccountRepo_Create_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db, 10000)

	ctx := context.Background()
	ts := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).
		WithArgs(lockExternalIDAlloc).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`SELECT GREATEST\(COALESCE\(MAX\(external_id\)\+1, 0\), \$1\) FROM accounts`).
		WithArgs(int64(10000)).
		WillReturnRows(pgxmock.NewRows([]string{"greatest"}).AddRow(int64(10042)))
	mock.ExpectQuery(`INSERT INTO accounts \(external_id, display_name, email, credential, bearer_token, device_fingerprint\)`).
		WithArgs(int64(10042), "Avery", "avery@example.com", "cred", "tok", "fp-1").
		WillReturnRows(pgxmock.NewRows([]string{"account_id", "last_active_at", "created_at"}).
			AddRow(int64(7), ts, ts))
	mock.ExpectCommit()

	a, err := r.Create(ctx, model.Seed{
		DisplayName:       "Avery",
		Email:             "avery@example.com",
		DeviceFingerprint: "fp-1",
	}, "tok", "cred")
	require.NoError(t, err)
	require.Equal(t, int64(7), a.AccountID)
	require.Equal(t, int64(10042), a.ExternalID)
	require.Equal(t, "tok", a.BearerToken)
}

func TestAccountRepo_Create_InsertErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db, 10000)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).
		WithArgs(lockExternalIDAlloc).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`SELECT GREATEST\(COALESCE\(MAX\(external_id\)\+1, 0\), \$1\) FROM accounts`).
		WithArgs(int64(10000)).
		WillReturnRows(pgxmock.NewRows([]string{"greatest"}).AddRow(int64(10000)))
	mock.ExpectQuery(`INSERT INTO accounts`).
		WithArgs(int64(10000), "", "", "c", "t", "").
		WillReturnError(errors.New("insert-fail"))
	mock.ExpectRollback()

	_, err := r.Create(ctx, model.Seed{}, "t", "c")
	require.Error(t, err)
}

func TestAccountRepo_GetByToken_OK_And_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db, 10000)
	ctx := context.Background()
	ts := time.Now().UTC()

	cols := []string{
		"account_id", "external_id", "display_name", "email", "credential", "bearer_token",
		"device_fingerprint", "save_token", "save_path", "last_active_at", "created_at",
	}

	mock.ExpectQuery(`FROM accounts WHERE bearer_token=\$1`).
		WithArgs("tok").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(int64(7), int64(10042), "Avery", "", "cred", "tok", "fp-1", "st", "10042/10042.doc", ts, ts))
	a, err := r.GetByToken(ctx, "tok")
	require.NoError(t, err)
	require.Equal(t, int64(10042), a.ExternalID)
	require.Equal(t, "st", a.SaveToken)

	mock.ExpectQuery(`FROM accounts WHERE bearer_token=\$1`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByToken(ctx, "nope")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAccountRepo_GetByExternalID_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db, 10000)

	mock.ExpectQuery(`FROM accounts WHERE external_id=\$1`).
		WithArgs(int64(99999)).
		WillReturnError(pgx.ErrNoRows)
	_, err := r.GetByExternalID(context.Background(), 99999)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAccountRepo_SetSaveToken(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db, 10000)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE accounts SET save_token=\$2 WHERE account_id=\$1`).
		WithArgs(int64(7), "new-token").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.SetSaveToken(ctx, 7, "new-token"))

	mock.ExpectExec(`UPDATE accounts SET save_token=\$2 WHERE account_id=\$1`).
		WithArgs(int64(8), "x").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, r.SetSaveToken(ctx, 8, "x"), errs.ErrNotFound)
}

func TestAccountRepo_SaveDocument_GatedWriteConsumesToken(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db, 10000)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT save_token FROM accounts WHERE account_id=\$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"save_token"}).AddRow("tok"))
	mock.ExpectExec(`UPDATE accounts SET save_path=\$2, save_token=\$3, last_active_at=now\(\) WHERE account_id=\$1`).
		WithArgs(int64(7), "10042/10042.doc", "next-tok").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`DELETE FROM land_events WHERE owner_id=\$1`).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectCommit()

	wrote := false
	rotated, err := r.SaveDocument(ctx, 7, "tok", "next-tok", "10042/10042.doc", func(context.Context) error {
		wrote = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, wrote)
	require.True(t, rotated)
}

func TestAccountRepo_SaveDocument_TokenConflict(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db, 10000)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT save_token FROM accounts WHERE account_id=\$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"save_token"}).AddRow("stored"))
	mock.ExpectRollback()

	wrote := false
	rotated, err := r.SaveDocument(ctx, 7, "stale", "n", "k", func(context.Context) error {
		wrote = true
		return nil
	})
	require.ErrorIs(t, err, errs.ErrConflict)
	require.False(t, wrote)
	require.False(t, rotated)
}

func TestAccountRepo_SaveDocument_TokenlessWriteAllowed(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db, 10000)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT save_token FROM accounts WHERE account_id=\$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"save_token"}).AddRow("stored"))
	mock.ExpectExec(`UPDATE accounts SET save_path=\$2, last_active_at=now\(\) WHERE account_id=\$1`).
		WithArgs(int64(7), "k").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`DELETE FROM land_events WHERE owner_id=\$1`).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCommit()

	rotated, err := r.SaveDocument(ctx, 7, "", "n", "k", func(context.Context) error { return nil })
	require.NoError(t, err)
	require.False(t, rotated)
}

func TestAccountRepo_SaveDocument_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db, 10000)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT save_token FROM accounts WHERE account_id=\$1 FOR UPDATE`).
		WithArgs(int64(404)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := r.SaveDocument(context.Background(), 404, "", "n", "k", func(context.Context) error { return nil })
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAccountRepo_SaveDocument_WriteErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db, 10000)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT save_token FROM accounts WHERE account_id=\$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"save_token"}).AddRow(""))
	mock.ExpectRollback()

	_, err := r.SaveDocument(context.Background(), 7, "", "n", "k", func(context.Context) error {
		return errors.New("blob-write-fail")
	})
	require.Error(t, err)
}

func TestAccountRepo_SaveDocument_CommitErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db, 10000)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT save_token FROM accounts WHERE account_id=\$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"save_token"}).AddRow(""))
	mock.ExpectExec(`UPDATE accounts SET save_path=\$2, last_active_at=now\(\) WHERE account_id=\$1`).
		WithArgs(int64(7), "k").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`DELETE FROM land_events WHERE owner_id=\$1`).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCommit().WillReturnError(errors.New("commit-fail"))

	_, err := r.SaveDocument(context.Background(), 7, "", "n", "k", func(context.Context) error { return nil })
	require.Error(t, err)
}

func TestAccountRepo_TouchLastActive(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db, 10000)

	mock.ExpectExec(`UPDATE accounts SET last_active_at=now\(\) WHERE account_id=\$1`).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.TouchLastActive(context.Background(), 7))
}
