package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-games/landsync/internal/blob"
	pkgcrypto "github.com/meridian-games/landsync/internal/crypto"
	"github.com/meridian-games/landsync/internal/errs"
	"github.com/meridian-games/landsync/internal/model"
	"github.com/meridian-games/landsync/internal/repository"
)

// DocumentService owns the per-account land document and its save token.
type DocumentService interface {
	// Get returns the stored document bytes. ErrNotFound when no path is
	// registered yet or the stored object is zero-length.
	Get(ctx context.Context, owner *model.Account) ([]byte, error)
	// Put durably writes the document, gated by the save token when both the
	// account and the caller hold one. The owner's mailbox is cleared as part
	// of the same write transaction: a save absorbs all queued events. A
	// token-gated write consumes the presented token and returns its
	// replacement; newToken is empty for tokenless writes.
	Put(ctx context.Context, owner *model.Account, data []byte, presentedToken string) (newToken string, err error)
	// IssueSaveToken rotates and persists a fresh save token. A replaced
	// token never validates again.
	IssueSaveToken(ctx context.Context, accountID int64) (string, error)
	// CheckSaveToken compares without mutating.
	CheckSaveToken(owner *model.Account, token string) bool
}

type DocumentServiceImpl struct {
	accounts repository.AccountRepository
	blobs    blob.Store
}

// NewDocumentService constructs DocumentService over the account repository
// and a blob backend.
func NewDocumentService(accounts repository.AccountRepository, blobs blob.Store) *DocumentServiceImpl {
	return &DocumentServiceImpl{accounts: accounts, blobs: blobs}
}

// Get loads the document bytes from the blob backend.
func (s *DocumentServiceImpl) Get(ctx context.Context, owner *model.Account) ([]byte, error) {
	if owner == nil {
		return nil, errors.New("validation: nil owner")
	}
	if owner.SavePath == "" {
		return nil, errs.ErrNotFound
	}
	b, err := s.blobs.Get(ctx, owner.SavePath)
	if err != nil {
		return nil, err
	}
	// A zero-byte object is a crashed upload; never serve it as a document.
	if len(b) == 0 {
		return nil, errs.ErrNotFound
	}
	return b, nil
}

// Put writes the bytes under the lazily allocated save path and clears the mailbox.
func (s *DocumentServiceImpl) Put(ctx context.Context, owner *model.Account, data []byte, presentedToken string) (string, error) {
	if owner == nil {
		return "", errors.New("validation: nil owner")
	}
	if len(data) == 0 {
		return "", errors.New("validation: empty document")
	}
	key := owner.SavePath
	if key == "" {
		key = blob.DocumentKey(owner.ExternalID)
	}
	next, err := pkgcrypto.NewOpaqueToken(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("next save token: %w", err)
	}
	rotated, err := s.accounts.SaveDocument(ctx, owner.AccountID, presentedToken, next, key,
		func(ctx context.Context) error {
			return s.blobs.Put(ctx, key, data)
		})
	if err != nil {
		return "", err
	}
	if !rotated {
		return "", nil
	}
	return next, nil
}

// IssueSaveToken rotates the stored token and returns the new one.
func (s *DocumentServiceImpl) IssueSaveToken(ctx context.Context, accountID int64) (string, error) {
	tok, err := pkgcrypto.NewOpaqueToken(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("issue save token: %w", err)
	}
	if err := s.accounts.SetSaveToken(ctx, accountID, tok); err != nil {
		return "", err
	}
	return tok, nil
}

// CheckSaveToken is a read-only comparison against the account's stored token.
func (s *DocumentServiceImpl) CheckSaveToken(owner *model.Account, token string) bool {
	if owner == nil || owner.SaveToken == "" {
		return false
	}
	return pkgcrypto.TokensEqual(owner.SaveToken, token)
}
