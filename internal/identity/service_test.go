package identity

import (
	"context"
	"errors"
	"testing"
)

func newTestService(t *testing.T) (*Service, Identity) {
	t.Helper()
	svc := NewService(NewInMemory())
	id, err := svc.CreateUser(context.Background(), "alice", "correct horse")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return svc, id
}

func TestAuthenticate(t *testing.T) {
	svc, want := newTestService(t)
	ctx := context.Background()

	got, err := svc.Authenticate(ctx, "alice", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got != want {
		t.Fatalf("unexpected identity: %+v", got)
	}

	for _, tc := range []struct{ username, password string }{
		{"alice", "wrong"},
		{"mallory", "correct horse"},
		{"", "correct horse"},
		{"alice", ""},
	} {
		if _, err := svc.Authenticate(ctx, tc.username, tc.password); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("Authenticate(%q, %q): expected ErrUnauthorized, got %v", tc.username, tc.password, err)
		}
	}
}

func TestLookup(t *testing.T) {
	svc, want := newTestService(t)
	ctx := context.Background()

	got, err := svc.Lookup(ctx, want.UserID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != want {
		t.Fatalf("unexpected identity: %+v", got)
	}
	if _, err := svc.Lookup(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListUsersOrdered(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for _, name := range []string{"zoe", "bob"} {
		if _, err := svc.CreateUser(ctx, name, "pw"); err != nil {
			t.Fatalf("CreateUser(%s): %v", name, err)
		}
	}
	users, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	for i, want := range []string{"alice", "bob", "zoe"} {
		if users[i].Username != want {
			t.Fatalf("unexpected order: %+v", users)
		}
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.CreateUser(context.Background(), "alice", "other"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}
