package service

import (
	"context"
	"testing"

	"github.com/meridian-games/landsync/internal/model"
	"github.com/meridian-games/landsync/internal/repository"
)

type fakeFriendRepo struct {
	reqOut model.FriendStatus
	reqErr error

	listOffset int
	listLimit  int
	listOut    []model.FriendEntry
	listTotal  int

	accepted map[[2]int64]bool
}

var _ repository.FriendRepository = (*fakeFriendRepo)(nil)

func (f *fakeFriendRepo) Request(_ context.Context, _, _ int64) (model.FriendStatus, error) {
	return f.reqOut, f.reqErr
}
func (f *fakeFriendRepo) Accept(_ context.Context, _, _ int64) error { return nil }
func (f *fakeFriendRepo) Reject(_ context.Context, _, _ int64) error { return nil }
func (f *fakeFriendRepo) Remove(_ context.Context, _, _ int64) error { return nil }

func (f *fakeFriendRepo) ListAccepted(_ context.Context, _ int64, offset, limit int) ([]model.FriendEntry, int, error) {
	f.listOffset, f.listLimit = offset, limit
	return f.listOut, f.listTotal, nil
}

func (f *fakeFriendRepo) IsAccepted(_ context.Context, a, b int64) (bool, error) {
	return f.accepted[[2]int64{a, b}], nil
}

func TestFriendService_PairValidation(t *testing.T) {
	t.Parallel()
	s := NewFriendService(&fakeFriendRepo{})
	ctx := context.Background()

	if _, err := s.Request(ctx, 0, 2); err == nil {
		t.Fatalf("want validation error on empty from id")
	}
	if _, err := s.Request(ctx, 1, 1); err == nil {
		t.Fatalf("want validation error on self pair")
	}
	if err := s.Accept(ctx, 1, 1); err == nil {
		t.Fatalf("accept: want validation error on self pair")
	}
	if err := s.Remove(ctx, 0, 2); err == nil {
		t.Fatalf("remove: want validation error on empty id")
	}
}

func TestFriendService_Request_EchoesExistingStatus(t *testing.T) {
	t.Parallel()
	repo := &fakeFriendRepo{reqOut: model.FriendAccepted}
	s := NewFriendService(repo)

	st, err := s.Request(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if st != model.FriendAccepted {
		t.Fatalf("want accepted echoed, got %s", st)
	}
}

func TestFriendService_ListAccepted_ClampsPaging(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := &fakeFriendRepo{}
	s := NewFriendService(repo)

	if _, _, err := s.ListAccepted(ctx, 1, -5, 0); err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.listOffset != 0 || repo.listLimit != defaultFriendPage {
		t.Fatalf("defaults not applied: offset=%d limit=%d", repo.listOffset, repo.listLimit)
	}

	if _, _, err := s.ListAccepted(ctx, 1, 10, 500); err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.listLimit != maxFriendPage {
		t.Fatalf("limit not clamped: %d", repo.listLimit)
	}
}

func TestFriendService_IsAccepted(t *testing.T) {
	t.Parallel()
	repo := &fakeFriendRepo{accepted: map[[2]int64]bool{{1, 2}: true}}
	s := NewFriendService(repo)

	ok, err := s.IsAccepted(context.Background(), 1, 2)
	if err != nil || !ok {
		t.Fatalf("want accepted, got %v %v", ok, err)
	}
	ok, _ = s.IsAccepted(context.Background(), 2, 9)
	if ok {
		t.Fatalf("unrelated pair must not be accepted")
	}
}
