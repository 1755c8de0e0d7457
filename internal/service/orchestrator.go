package service

import (
	"context"
	"errors"

	pkgcrypto "github.com/meridian-games/landsync/internal/crypto"
	"github.com/meridian-games/landsync/internal/errs"
	"github.com/meridian-games/landsync/internal/limiter"
	"github.com/meridian-games/landsync/internal/model"
	"github.com/meridian-games/landsync/internal/presence"
)

// Orchestrator composes the core components per protocol operation. It is the
// only place allowed to touch more than one of document/mailbox/friends/ledger
// in a single logical operation, and it refreshes presence on every success.
type Orchestrator struct {
	identity IdentityService
	docs     DocumentService
	mailbox  MailboxService
	friends  FriendService
	ledger   LedgerService
	tracker  *presence.Tracker
	lim      limiter.Limiter
	node     string
}

// NewOrchestrator wires the component services together. node names this
// server instance in presence records.
func NewOrchestrator(
	identity IdentityService,
	docs DocumentService,
	mailbox MailboxService,
	friends FriendService,
	ledger LedgerService,
	tracker *presence.Tracker,
	lim limiter.Limiter,
	node string,
) *Orchestrator {
	return &Orchestrator{
		identity: identity,
		docs:     docs,
		mailbox:  mailbox,
		friends:  friends,
		ledger:   ledger,
		tracker:  tracker,
		lim:      lim,
		node:     node,
	}
}

// ResolveIdentity maps a bearer token to its account.
func (o *Orchestrator) ResolveIdentity(ctx context.Context, bearer string) (*model.Account, error) {
	return o.identity.Resolve(ctx, bearer)
}

// Authenticate returns the device's existing account or provisions a new one,
// and opens its presence session.
func (o *Orchestrator) Authenticate(ctx context.Context, seed model.Seed) (*model.Account, error) {
	a, err := o.identity.Provision(ctx, seed)
	if err != nil {
		return nil, err
	}
	o.tracker.Track(a.AccountID, a.ExternalID, o.node, "auth")
	return a, nil
}

// authorizeVisit allows self always, otherwise requires an accepted friendship.
func (o *Orchestrator) authorizeVisit(ctx context.Context, requester, owner *model.Account) error {
	if requester.AccountID == owner.AccountID {
		return nil
	}
	ok, err := o.friends.IsAccepted(ctx, requester.AccountID, owner.AccountID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrForbidden
	}
	return nil
}

// FetchDocument returns the land document for ownerExternalID, authorized for
// the requester. Visits to a friend's land also drain (non-destructively) the
// owner's mailbox for the "who visited" view. An account that exists but has
// never saved yields an empty placeholder so first-run clients stay functional.
func (o *Orchestrator) FetchDocument(
	ctx context.Context, requester *model.Account, ownerExternalID int64,
) ([]byte, []model.EventEnvelope, error) {
	owner, err := o.identity.ResolveExternal(ctx, ownerExternalID)
	if err != nil {
		return nil, nil, err
	}
	if err := o.authorizeVisit(ctx, requester, owner); err != nil {
		return nil, nil, err
	}

	doc, err := o.docs.Get(ctx, owner)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			return nil, nil, err
		}
		doc = []byte{}
	}

	var visits []model.EventEnvelope
	if requester.AccountID != owner.AccountID {
		if visits, err = o.mailbox.Drain(ctx, owner.AccountID); err != nil {
			return nil, nil, err
		}
	}

	o.tracker.Track(requester.AccountID, requester.ExternalID, o.node, "fetch")
	return doc, visits, nil
}

// SaveDocument writes the owner's document; the mailbox is cleared inside the
// same write transaction. A token-gated save returns the replacement token,
// the presented one is spent.
func (o *Orchestrator) SaveDocument(
	ctx context.Context, owner *model.Account, data []byte, saveToken string,
) (string, error) {
	newToken, err := o.docs.Put(ctx, owner, data, saveToken)
	if err != nil {
		return "", err
	}
	o.tracker.Touch(owner.AccountID)
	return newToken, nil
}

// IssueSaveToken rotates the owner's save token for the next conditional write.
func (o *Orchestrator) IssueSaveToken(ctx context.Context, owner *model.Account) (string, error) {
	tok, err := o.docs.IssueSaveToken(ctx, owner.AccountID)
	if err != nil {
		return "", err
	}
	o.tracker.Touch(owner.AccountID)
	return tok, nil
}

// SubmitEvent queues a visitor action on the owner's mailbox.
func (o *Orchestrator) SubmitEvent(
	ctx context.Context, visitor *model.Account, ownerExternalID int64, payload []byte,
) error {
	owner, err := o.identity.ResolveExternal(ctx, ownerExternalID)
	if err != nil {
		return err
	}
	if err := o.authorizeVisit(ctx, visitor, owner); err != nil {
		return err
	}
	if err := o.mailbox.Enqueue(ctx, visitor.AccountID, owner.AccountID, payload); err != nil {
		return err
	}
	o.tracker.Touch(visitor.AccountID)
	return nil
}

// DrainEvents returns the owner's queued events without consuming them.
func (o *Orchestrator) DrainEvents(ctx context.Context, owner *model.Account) ([]model.EventEnvelope, error) {
	envs, err := o.mailbox.Drain(ctx, owner.AccountID)
	if err != nil {
		return nil, err
	}
	o.tracker.Touch(owner.AccountID)
	return envs, nil
}

// ApplyCurrency checks the presented credential against the account's stored
// one (rate-limited per account and caller address) and applies the batch.
func (o *Orchestrator) ApplyCurrency(
	ctx context.Context, acct *model.Account, presentedCredential, callerIP string, deltas []model.Delta,
) ([]model.ProcessedDelta, *model.CurrencyAccount, error) {
	ipHash := limiter.HashIP(callerIP)

	allowed, _, err := o.lim.Allow(ctx, acct.ExternalID, ipHash)
	if err != nil {
		return nil, nil, err
	}
	if !allowed {
		return nil, nil, errs.ErrRateLimited
	}

	if !pkgcrypto.VerifyCredential(acct.Credential, presentedCredential) {
		if blocked, _, ferr := o.lim.Failure(ctx, acct.ExternalID, ipHash); ferr == nil && blocked {
			return nil, nil, errs.ErrRateLimited
		}
		return nil, nil, errs.ErrUnauthorized
	}
	_ = o.lim.Success(ctx, acct.ExternalID, ipHash)

	acks, cur, err := o.ledger.ApplyDeltas(ctx, acct.AccountID, deltas)
	if err != nil {
		return nil, nil, err
	}
	o.tracker.Touch(acct.AccountID)
	return acks, cur, nil
}

// Balance returns (lazily creating) the account's currency record.
func (o *Orchestrator) Balance(ctx context.Context, acct *model.Account) (*model.CurrencyAccount, error) {
	cur, err := o.ledger.Ensure(ctx, acct.AccountID)
	if err != nil {
		return nil, err
	}
	o.tracker.Touch(acct.AccountID)
	return cur, nil
}

// SetBalance is the administrative override, dashboard use only.
func (o *Orchestrator) SetBalance(ctx context.Context, accountExternalID, amount int64) error {
	owner, err := o.identity.ResolveExternal(ctx, accountExternalID)
	if err != nil {
		return err
	}
	return o.ledger.SetBalance(ctx, owner.AccountID, amount)
}

// RequestFriend sends (or echoes) a friend request to the target account.
func (o *Orchestrator) RequestFriend(
	ctx context.Context, requester *model.Account, targetExternalID int64,
) (model.FriendStatus, error) {
	target, err := o.identity.ResolveExternal(ctx, targetExternalID)
	if err != nil {
		return model.FriendNone, err
	}
	st, err := o.friends.Request(ctx, requester.AccountID, target.AccountID)
	if err != nil {
		return model.FriendNone, err
	}
	o.tracker.Touch(requester.AccountID)
	return st, nil
}

// AcceptFriend accepts a pending request from requesterExternalID.
func (o *Orchestrator) AcceptFriend(ctx context.Context, owner *model.Account, requesterExternalID int64) error {
	requester, err := o.identity.ResolveExternal(ctx, requesterExternalID)
	if err != nil {
		return err
	}
	if err := o.friends.Accept(ctx, owner.AccountID, requester.AccountID); err != nil {
		return err
	}
	o.tracker.Touch(owner.AccountID)
	return nil
}

// RejectFriend drops a pending request; no-op once resolved.
func (o *Orchestrator) RejectFriend(ctx context.Context, owner *model.Account, requesterExternalID int64) error {
	requester, err := o.identity.ResolveExternal(ctx, requesterExternalID)
	if err != nil {
		return err
	}
	if err := o.friends.Reject(ctx, owner.AccountID, requester.AccountID); err != nil {
		return err
	}
	o.tracker.Touch(owner.AccountID)
	return nil
}

// RemoveFriend dissolves the pair in both directions.
func (o *Orchestrator) RemoveFriend(ctx context.Context, owner *model.Account, friendExternalID int64) error {
	friend, err := o.identity.ResolveExternal(ctx, friendExternalID)
	if err != nil {
		return err
	}
	if err := o.friends.Remove(ctx, owner.AccountID, friend.AccountID); err != nil {
		return err
	}
	o.tracker.Touch(owner.AccountID)
	return nil
}

// ListFriends pages the owner's accepted friends, annotating online status.
func (o *Orchestrator) ListFriends(
	ctx context.Context, owner *model.Account, offset, limit int,
) ([]model.FriendEntry, int, error) {
	entries, total, err := o.friends.ListAccepted(ctx, owner.AccountID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	o.tracker.Touch(owner.AccountID)
	return entries, total, nil
}

// IsOnline exposes presence-derived online status.
func (o *Orchestrator) IsOnline(accountID int64) bool { return o.tracker.IsOnline(accountID) }

// PresenceSnapshot lists live sessions for operational tooling.
func (o *Orchestrator) PresenceSnapshot() []model.Session { return o.tracker.Snapshot() }

// PresenceCount reports the session table size.
func (o *Orchestrator) PresenceCount() int { return o.tracker.Count() }

// PresenceStats aggregates session data for dashboards.
func (o *Orchestrator) PresenceStats() model.PresenceStats { return o.tracker.Stats() }
