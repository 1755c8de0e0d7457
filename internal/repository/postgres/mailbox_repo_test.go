package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/meridian-games/landsync/internal/model"
)

func TestMailboxRepo_Enqueue(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewMailboxRepo(db)

	mock.ExpectExec(`INSERT INTO land_events \(owner_id, from_id, payload\) VALUES \(\$1,\$2,\$3\)`).
		WithArgs(int64(2), int64(1), []byte(`{"gift":"sapling"}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := r.Enqueue(context.Background(), model.EventEnvelope{
		FromAccount: 1,
		ToAccount:   2,
		Payload:     []byte(`{"gift":"sapling"}`),
	})
	require.NoError(t, err)
}

func TestMailboxRepo_Drain_InsertionOrder(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewMailboxRepo(db)
	ts := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"event_id", "owner_id", "from_id", "payload", "created_at"}).
		AddRow(int64(1), int64(2), int64(1), []byte("a"), ts).
		AddRow(int64(2), int64(2), int64(3), []byte("b"), ts)
	mock.ExpectQuery(`FROM land_events WHERE owner_id=\$1 ORDER BY event_id ASC`).
		WithArgs(int64(2)).
		WillReturnRows(rows)

	out, err := r.Drain(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, int64(1), out[0].EventID)
	require.Equal(t, int64(3), out[1].FromAccount)
	require.Equal(t, []byte("b"), out[1].Payload)
}

func TestMailboxRepo_Drain_Empty(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewMailboxRepo(db)

	mock.ExpectQuery(`FROM land_events WHERE owner_id=\$1 ORDER BY event_id ASC`).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"event_id", "owner_id", "from_id", "payload", "created_at"}))

	out, err := r.Drain(context.Background(), 2)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestMailboxRepo_Drain_QueryErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewMailboxRepo(db)

	mock.ExpectQuery(`FROM land_events WHERE owner_id=\$1 ORDER BY event_id ASC`).
		WithArgs(int64(2)).
		WillReturnError(errors.New("q-fail"))

	_, err := r.Drain(context.Background(), 2)
	require.Error(t, err)
}
