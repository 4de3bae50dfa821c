package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"userapi/internal/models"

	"github.com/google/uuid"
)

// MockUserRepository is an in-memory implementation of UserRepository.
type MockUserRepository struct {
	users map[string]models.User
	mu    sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]models.User),
	}
}

// Create adds a new user.
func (r *MockUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTakenLocked(user.Email, "") {
		return ErrEmailTaken
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = clone(*user)
	return nil
}

// GetByID returns a user by its ID.
func (r *MockUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := clone(user)
	return &u, nil
}

// GetByEmail returns a user by email.
func (r *MockUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			u := clone(user)
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

// GetAll returns all users ordered by creation time.
func (r *MockUserRepository) GetAll(_ context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userList := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		userList = append(userList, clone(u))
	}
	sort.Slice(userList, func(i, j int) bool {
		return userList[i].CreatedAt.Before(userList[j].CreatedAt)
	})
	return userList, nil
}

// Save replaces the profile and avatar of an existing user, keeping the
// stored tokens.
func (r *MockUserRepository) Save(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	if r.emailTakenLocked(user.Email, user.ID) {
		return ErrEmailTaken
	}
	user.UpdatedAt = time.Now()
	u := clone(*user)
	u.Tokens = stored.Tokens
	r.users[user.ID] = u
	return nil
}

// AddToken appends token to the sessions of user id.
func (r *MockUserRepository) AddToken(_ context.Context, id, token string) error {
	return r.updateTokens(id, func(u *models.User) { u.AddToken(token) })
}

// RemoveToken drops token from the sessions of user id.
func (r *MockUserRepository) RemoveToken(_ context.Context, id, token string) error {
	return r.updateTokens(id, func(u *models.User) { u.RemoveToken(token) })
}

// ClearTokens drops every session of user id.
func (r *MockUserRepository) ClearTokens(_ context.Context, id string) error {
	return r.updateTokens(id, func(u *models.User) { u.ClearTokens() })
}

func (r *MockUserRepository) updateTokens(id string, change func(*models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u := clone(stored)
	change(&u)
	u.UpdatedAt = time.Now()
	r.users[id] = u
	return nil
}

// Delete removes a user by its ID.
func (r *MockUserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *MockUserRepository) emailTakenLocked(email, exceptID string) bool {
	for id, u := range r.users {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

// clone copies the slices so callers never alias stored records.
func clone(u models.User) models.User {
	if u.Tokens != nil {
		u.Tokens = append([]models.Token(nil), u.Tokens...)
	}
	if u.Avatar != nil {
		u.Avatar = append([]byte(nil), u.Avatar...)
	}
	return u
}
