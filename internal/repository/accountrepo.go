// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/meridian-games/landsync/internal/model"
)

// AccountRepository provides identity resolution and the per-account
// document save transaction.
type AccountRepository interface {
	// Create allocates the next account/external id pair and inserts the account.
	// Allocation is serialized so concurrent provisioning cannot collide.
	Create(ctx context.Context, seed model.Seed, bearerToken, credential string) (*model.Account, error)

	// GetByToken resolves a bearer token to an account.
	GetByToken(ctx context.Context, token string) (*model.Account, error)

	// GetByExternalID loads an account by its public document key.
	GetByExternalID(ctx context.Context, externalID int64) (*model.Account, error)

	// GetByFingerprint returns the account previously provisioned for a device.
	GetByFingerprint(ctx context.Context, fingerprint string) (*model.Account, error)

	// SetSaveToken rotates the stored save token.
	SetSaveToken(ctx context.Context, accountID int64, token string) error

	// SaveDocument runs one atomic document write: locks the account row,
	// verifies the presented save token, invokes write (the blob store) under
	// the lock, registers the save path, and clears the owner's event mailbox.
	// A write that passed the token gate also replaces the stored save token
	// with nextToken in the same transaction, so a consumed token never
	// validates again; rotated reports whether that happened.
	SaveDocument(ctx context.Context, accountID int64, presentedToken, nextToken, savePath string, write func(ctx context.Context) error) (rotated bool, err error)

	// TouchLastActive updates last_active_at for the account.
	TouchLastActive(ctx context.Context, accountID int64) error
}
