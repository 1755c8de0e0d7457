// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Account is a registered or anonymous player identity.
type Account struct {
	AccountID         int64  // PK
	ExternalID        int64  // public-facing document key, monotonically assigned
	DisplayName       string
	Email             string // optional
	Credential        string // argon2id hash of the secret presented on currency updates
	BearerToken       string // opaque, rotates only on explicit re-auth
	DeviceFingerprint string // optional, recognizes reinstalls
	SaveToken         string // optimistic-lock handle for document writes, empty until issued
	SavePath          string // blob key, allocated lazily on first write
	LastActiveAt      time.Time
	CreatedAt         time.Time
}

// Seed carries optional identity hints for provisioning a new account.
type Seed struct {
	DisplayName       string
	Email             string
	DeviceFingerprint string
}

// EventEnvelope is one queued friend-originated action awaiting owner consumption.
type EventEnvelope struct {
	EventID     int64
	FromAccount int64
	ToAccount   int64 // the document owner
	Payload     []byte
	CreatedAt   time.Time
}

// FriendStatus is the state of one directed friend edge.
type FriendStatus string

const (
	FriendPending  FriendStatus = "pending"
	FriendAccepted FriendStatus = "accepted"
	// FriendNone is a derived status for pairs with no edge; never persisted.
	FriendNone FriendStatus = "none"
)

// FriendEdge is a directed relationship record between two accounts.
type FriendEdge struct {
	OwnerID   int64
	FriendID  int64
	Status    FriendStatus
	CreatedAt time.Time
}

// FriendEntry is one row of a paginated accepted-friends listing.
type FriendEntry struct {
	AccountID   int64
	ExternalID  int64
	DisplayName string
	Since       time.Time
}

// CurrencyAccount holds per-account monotonic currency totals.
type CurrencyAccount struct {
	AccountID      int64
	TotalAwarded   int64
	TotalPurchased int64
	Balance        int64 // totalAwarded + totalPurchased maintained by construction
	UpdatedAt      time.Time
}

// Delta is one increment in a currency batch, identified by the caller.
type Delta struct {
	ID     string
	Amount int64
}

// ProcessedDelta acknowledges one applied delta by echoing its id.
type ProcessedDelta struct {
	ID        string
	Processed bool
}

// Session is the ephemeral record of one account's recent activity.
type Session struct {
	SessionID    uuid.UUID
	AccountID    int64
	DocumentKey  int64
	ServerNode   string
	Meta         string
	ConnectedAt  time.Time
	LastActiveAt time.Time
}

// PresenceStats aggregates session data for operational tooling.
type PresenceStats struct {
	Sessions int
	AvgAge   time.Duration
	MinAge   time.Duration
	MaxAge   time.Duration
	PerNode  map[string]int
}
