package memory

import (
	"context"
	"sync"

	"pyquest-backend/internal/domain"
)

// UserStore is an in-memory implementation of app.UserStore.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserStore(seed map[string]domain.User) *UserStore {
	users := make(map[string]domain.User, len(seed))
	for id, user := range seed {
		user.ID = id
		users[id] = user
	}
	return &UserStore{users: users}
}

func (s *UserStore) Get(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *UserStore) IncrementPoints(_ context.Context, userID string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	user.Points += delta
	s.users[userID] = user
	return user.Points, nil
}

func (s *UserStore) DeductPoints(_ context.Context, userID string, cost int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	if user.Points < cost {
		return 0, domain.ErrInsufficientPoints
	}
	user.Points -= cost
	s.users[userID] = user
	return user.Points, nil
}
