package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"userapi/internal/models"
	"userapi/internal/repositories"

	"github.com/go-playground/validator/v10"
)

// UserService handles profile reads and self-service changes.
type UserService struct {
	userRepo repositories.UserRepository
	auth     *AuthService
	events   EventPublisher
	validate *validator.Validate
}

// NewUserService creates a new UserService. auth is used to hash updated
// passwords; events may be nil.
func NewUserService(userRepo repositories.UserRepository, auth *AuthService, events EventPublisher) *UserService {
	return &UserService{
		userRepo: userRepo,
		auth:     auth,
		events:   events,
		validate: NewValidator(),
	}
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// GetByID returns the user with id, or ErrNotFound.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return user, nil
}

// Update applies patch to user and persists it. user is left untouched
// when validation fails.
func (s *UserService) Update(ctx context.Context, user *models.User, patch models.UserUpdate) error {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		patch.Email = &email
	}
	if patch.Password != nil {
		password := strings.TrimSpace(*patch.Password)
		patch.Password = &password
	}
	if err := validateStruct(s.validate, patch); err != nil {
		return err
	}

	if patch.Password != nil {
		hashed, err := s.auth.HashPassword(*patch.Password)
		if err != nil {
			return err
		}
		patch.Password = &hashed
	}

	updated := *user
	patch.Apply(&updated)
	if err := s.userRepo.Save(ctx, &updated); err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	*user = updated
	return nil
}

// Delete removes user's record.
func (s *UserService) Delete(ctx context.Context, user *models.User) error {
	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", user.ID, err)
	}
	publish(s.events, EventUserDeleted, user)
	return nil
}

// SetAvatar stores data as user's avatar.
func (s *UserService) SetAvatar(ctx context.Context, user *models.User, data []byte) error {
	user.Avatar = data
	if err := s.userRepo.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to set avatar for user %s: %w", user.ID, err)
	}
	return nil
}

// ClearAvatar removes user's avatar.
func (s *UserService) ClearAvatar(ctx context.Context, user *models.User) error {
	user.Avatar = nil
	if err := s.userRepo.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to clear avatar for user %s: %w", user.ID, err)
	}
	return nil
}

// GetAvatar returns the avatar bytes of the user with id. It returns
// ErrNotFound when the user is missing or has no avatar.
func (s *UserService) GetAvatar(ctx context.Context, id string) ([]byte, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(user.Avatar) == 0 {
		return nil, ErrNotFound
	}
	return user.Avatar, nil
}
