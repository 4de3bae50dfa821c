package repositories

import (
	"context"
	"errors"

	"userapi/internal/models"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when a write would duplicate an email.
	ErrEmailTaken = errors.New("email already registered")
)

// UserRepository defines the interface for user data access.
//
// Save writes the profile and avatar fields only. Session tokens change
// through AddToken, RemoveToken and ClearTokens, which apply atomically to
// the stored list so concurrent logins and logouts never lose each other's
// writes.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetAll(ctx context.Context) ([]models.User, error)
	Save(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	AddToken(ctx context.Context, id, token string) error
	RemoveToken(ctx context.Context, id, token string) error
	ClearTokens(ctx context.Context, id string) error
}
