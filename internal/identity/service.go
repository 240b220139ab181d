package identity

import (
	"context"
	"errors"
	"strings"
)

// Service resolves and authenticates identities on top of a Store.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Lookup resolves a user id to its identity.
func (s *Service) Lookup(ctx context.Context, userID int64) (Identity, error) {
	user, err := s.store.Find(ctx, userID)
	if err != nil {
		return Identity{}, err
	}
	return user.Identity(), nil
}

// Authenticate verifies credentials. Unknown usernames and wrong passwords
// both return ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Identity{}, ErrUnauthorized
	}
	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, ErrUnauthorized
		}
		return Identity{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Identity{}, ErrUnauthorized
	}
	return user.Identity(), nil
}

// ListUsers returns all identities ordered by username, for the login
// selector.
func (s *Service) ListUsers(ctx context.Context) ([]Identity, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Identity, 0, len(users))
	for i := range users {
		out = append(out, users[i].Identity())
	}
	return out, nil
}

// CreateUser registers an account with a hashed password. Used by the
// operator CLI and tests; the HTTP surface never creates accounts.
func (s *Service) CreateUser(ctx context.Context, username, password string) (Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Identity{}, errors.New("identity: username is required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Identity{}, err
	}
	user := &User{Username: username, PasswordHash: hash}
	if err := s.store.Create(ctx, user); err != nil {
		return Identity{}, err
	}
	return user.Identity(), nil
}
