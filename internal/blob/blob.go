// Package blob defines the byte storage contract for land documents.
// Payloads are opaque: stores persist and return bytes verbatim.
package blob

import (
	"context"
	"fmt"
)

// Store persists document bytes under opaque keys.
type Store interface {
	// Get returns the stored bytes; errs.ErrNotFound when no object exists.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put durably replaces the object. Writes are atomic: a concurrent reader
	// never observes partial bytes.
	Put(ctx context.Context, key string, data []byte) error
}

// DocumentKey returns the storage key for an account's land document.
func DocumentKey(externalID int64) string {
	return fmt.Sprintf("%d/%d.doc", externalID, externalID)
}
