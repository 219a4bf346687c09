package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sahwira-ai/sahwira/internal/model"
)

// UserStore keeps users in memory, keyed by email.
type UserStore struct {
	users map[string]*model.User
	mu    sync.RWMutex
}

// NewUserStore creates an empty user store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*model.User)}
}

// Upsert inserts user or refreshes name and image of the record with the same email.
func (s *UserStore) Upsert(_ context.Context, user *model.User) (*model.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.users[user.Email]; ok {
		existing.Name = user.Name
		existing.Image = user.Image
		out := *existing
		return &out, false, nil
	}

	stored := *user
	stored.ID = newID()
	s.users[stored.Email] = &stored
	out := stored
	return &out, true, nil
}

// FindByEmail returns the user with email.
func (s *UserStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[email]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *u
	return &out, nil
}

// List returns every user in creation order.
func (s *UserStore) List(context.Context) ([]model.User, error) {
	s.mu.RLock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Count returns the number of users.
func (s *UserStore) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}
