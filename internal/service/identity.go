// Package service contains application services composing the sync core.
package service

import (
	"context"
	"errors"
	"fmt"

	pkgcrypto "github.com/meridian-games/landsync/internal/crypto"
	"github.com/meridian-games/landsync/internal/errs"
	"github.com/meridian-games/landsync/internal/model"
	"github.com/meridian-games/landsync/internal/repository"
)

// tokenBytes sizes the random half of every opaque token (hex doubles it).
const tokenBytes = 24

// IdentityService resolves bearer credentials and provisions accounts.
type IdentityService interface {
	// Resolve maps a bearer token to its account. Pure lookup, no side effects.
	Resolve(ctx context.Context, token string) (*model.Account, error)
	// Provision creates a new account with fresh opaque token and credential.
	// A known device fingerprint reattaches to the existing account instead.
	Provision(ctx context.Context, seed model.Seed) (*model.Account, error)
	// RecognizeByFingerprint returns the account provisioned for a device, if any.
	RecognizeByFingerprint(ctx context.Context, fingerprint string) (*model.Account, error)
	// ResolveExternal loads an account by its public document key.
	ResolveExternal(ctx context.Context, externalID int64) (*model.Account, error)
}

type IdentityServiceImpl struct {
	accounts repository.AccountRepository
}

// NewIdentityService constructs IdentityService.
func NewIdentityService(accounts repository.AccountRepository) *IdentityServiceImpl {
	return &IdentityServiceImpl{accounts: accounts}
}

// Resolve maps a bearer token to its account.
func (s *IdentityServiceImpl) Resolve(ctx context.Context, token string) (*model.Account, error) {
	if token == "" {
		return nil, errs.ErrUnauthorized
	}
	a, err := s.accounts.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrUnauthorized
		}
		return nil, err
	}
	return a, nil
}

// Provision allocates a new account, or reattaches to the device's existing one.
func (s *IdentityServiceImpl) Provision(ctx context.Context, seed model.Seed) (*model.Account, error) {
	if seed.DeviceFingerprint != "" {
		if a, err := s.accounts.GetByFingerprint(ctx, seed.DeviceFingerprint); err == nil {
			return a, nil
		} else if !errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
	}

	bearer, err := pkgcrypto.NewOpaqueToken(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("issue bearer token: %w", err)
	}
	credential, err := pkgcrypto.NewOpaqueToken(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("issue credential: %w", err)
	}
	credHash, err := pkgcrypto.HashCredential(credential)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}
	a, err := s.accounts.Create(ctx, seed, bearer, credHash)
	if err != nil {
		return nil, err
	}
	// The plaintext credential leaves the server exactly once; only the
	// hash is stored.
	out := *a
	out.Credential = credential
	return &out, nil
}

// RecognizeByFingerprint returns the account previously provisioned for a device.
func (s *IdentityServiceImpl) RecognizeByFingerprint(ctx context.Context, fingerprint string) (*model.Account, error) {
	if fingerprint == "" {
		return nil, errs.ErrNotFound
	}
	return s.accounts.GetByFingerprint(ctx, fingerprint)
}

// ResolveExternal loads an account by its public document key.
func (s *IdentityServiceImpl) ResolveExternal(ctx context.Context, externalID int64) (*model.Account, error) {
	if externalID == 0 {
		return nil, errs.ErrNotFound
	}
	return s.accounts.GetByExternalID(ctx, externalID)
}
