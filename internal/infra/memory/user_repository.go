package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"quizweb/internal/domain"
)

// UserRepository is an in-memory implementation of app.UserRepository.
type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]domain.User
	clock  func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[int64]domain.User), clock: time.Now}
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (r *UserRepository) FindByDisplayName(_ context.Context, displayName string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.DisplayName == displayName {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (r *UserRepository) Create(_ context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return domain.User{}, domain.ErrEmailTaken
		}
	}
	r.nextID++
	user.ID = r.nextID
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	user.CreatedAt = r.clock()
	r.users[user.ID] = user
	return user, nil
}
