package postgres

import (
	"context"

	"github.com/meridian-games/landsync/internal/model"
)

// MailboxRepo implements MailboxRepository using PostgreSQL.
type MailboxRepo struct{ db *DB }

// NewMailboxRepo constructs a mailbox repository.
func NewMailboxRepo(db *DB) *MailboxRepo { return &MailboxRepo{db: db} }

// Enqueue appends one envelope to the owner's queue. Concurrent visitors
// append independent rows, so no entry can overwrite another.
func (r *MailboxRepo) Enqueue(ctx context.Context, env model.EventEnvelope) error {
	const q = `INSERT INTO land_events (owner_id, from_id, payload) VALUES ($1,$2,$3)`
	_, err := r.db.Pool.Exec(ctx, q, env.ToAccount, env.FromAccount, env.Payload)
	return err
}

// Drain returns all queued envelopes in insertion order without consuming them.
func (r *MailboxRepo) Drain(ctx context.Context, ownerID int64) ([]model.EventEnvelope, error) {
	const q = `
SELECT event_id, owner_id, from_id, payload, created_at
FROM land_events WHERE owner_id=$1 ORDER BY event_id ASC`
	rows, err := r.db.Pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EventEnvelope
	for rows.Next() {
		var env model.EventEnvelope
		if err = rows.Scan(&env.EventID, &env.ToAccount, &env.FromAccount, &env.Payload, &env.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, rows.Err()
}
