package identity

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemory implements Store in process memory, for tests and DSN-less runs.
type InMemory struct {
	mu     sync.Mutex
	users  map[int64]User
	nextID int64
}

// NewInMemory creates an empty account store.
func NewInMemory() *InMemory {
	return &InMemory{users: make(map[int64]User), nextID: 1}
}

func (m *InMemory) Find(ctx context.Context, id int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := user
	return &out, nil
}

func (m *InMemory) FindByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			out := user
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *InMemory) List(ctx context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]User, 0, len(m.users))
	for _, user := range m.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *InMemory) Create(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return ErrAlreadyExists
		}
	}
	u.ID = m.nextID
	m.nextID++
	u.CreatedAt = time.Now().UTC()
	m.users[u.ID] = *u
	return nil
}
