package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"userapi/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
// The db should be opened with TranslateError so unique violations surface
// as gorm.ErrDuplicatedKey.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Migrate creates or updates the users table.
func (r *GORMUserRepository) Migrate() error {
	if err := r.db.AutoMigrate(&models.User{}); err != nil {
		return fmt.Errorf("failed to migrate users: %w", err)
	}
	return nil
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *GORMUserRepository) first(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user where %s %s: %w", query, arg, err)
	}
	return &user, nil
}

// GetAll retrieves all users from the database.
func (r *GORMUserRepository) GetAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("created_at").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	return users, nil
}

// Save writes the profile and avatar columns of user, including zero
// values. Tokens are left as stored.
func (r *GORMUserRepository) Save(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(user).Select("*").Omit("created_at", "tokens").Updates(user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to save user %s: %w", user.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes a user by their ID.
func (r *GORMUserRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AddToken appends token to the stored sessions of user id.
func (r *GORMUserRepository) AddToken(ctx context.Context, id, token string) error {
	return r.updateTokens(ctx, id, func(u *models.User) { u.AddToken(token) })
}

// RemoveToken drops token from the stored sessions of user id.
func (r *GORMUserRepository) RemoveToken(ctx context.Context, id, token string) error {
	return r.updateTokens(ctx, id, func(u *models.User) { u.RemoveToken(token) })
}

// ClearTokens drops every stored session of user id.
func (r *GORMUserRepository) ClearTokens(ctx context.Context, id string) error {
	return r.updateTokens(ctx, id, func(u *models.User) { u.ClearTokens() })
}

// updateTokens rewrites the tokens column while holding the row lock, so
// concurrent changes to the same user are applied one after another.
func (r *GORMUserRepository) updateTokens(ctx context.Context, id string, change func(*models.User)) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		change(&user)
		user.UpdatedAt = time.Now()
		return tx.Model(&user).Select("tokens", "updated_at").Updates(&user).Error
	})
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("failed to update tokens of user %s: %w", id, err)
	}
	return err
}
