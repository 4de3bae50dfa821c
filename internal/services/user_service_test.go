package services_test

import (
	"errors"
	"testing"

	"userapi/internal/models"
	"userapi/internal/repositories"
	"userapi/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newUserService(repo *MockUserRepository, events services.EventPublisher) *services.UserService {
	return services.NewUserService(repo, newAuthService(repo, nil), events)
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestUserService_GetByID(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := newUserService(mockRepo, nil)

	mockRepo.On("GetByID", ctx, "u1").Return(&models.User{ID: "u1"}, nil).Once()
	user, err := userService.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	mockRepo.On("GetByID", ctx, "missing").Return(nil, repositories.ErrUserNotFound).Once()
	_, err = userService.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, services.ErrNotFound)

	mockRepo.On("GetByID", ctx, "broken").Return(nil, errors.New("timeout")).Once()
	_, err = userService.GetByID(ctx, "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrNotFound)
	mockRepo.AssertExpectations(t)
}

func TestUserService_List(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := newUserService(mockRepo, nil)

	mockRepo.On("GetAll", ctx).Return([]models.User{{ID: "a"}, {ID: "b"}}, nil).Once()
	users, err := userService.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	mockRepo.On("GetAll", ctx).Return(nil, errors.New("down")).Once()
	_, err = userService.List(ctx)
	assert.Error(t, err)
}

func TestUserService_Update(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := newUserService(mockRepo, nil)
	user := &models.User{ID: "u1", Name: "A", Email: "a@x.com", Password: "old-hash", Age: 30}

	mockRepo.On("Save", ctx, mock.AnythingOfType("*models.User")).Return(nil).Once()

	err := userService.Update(ctx, user, models.UserUpdate{
		Name:     strPtr("  B "),
		Password: strPtr("newsecret1"),
		Age:      intPtr(31),
	})
	require.NoError(t, err)
	assert.Equal(t, "B", user.Name)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, 31, user.Age)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("newsecret1")))
	mockRepo.AssertExpectations(t)
}

func TestUserService_Update_InvalidLeavesUserUntouched(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := newUserService(mockRepo, nil)
	user := &models.User{ID: "u1", Name: "A", Email: "a@x.com", Age: 30}
	before := *user

	err := userService.Update(ctx, user, models.UserUpdate{Email: strPtr("not-an-email"), Age: intPtr(5)})
	var validationErr *services.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, validationErr.Fields, "Email")
	assert.Equal(t, before, *user)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)

	mockRepo.On("Save", ctx, mock.AnythingOfType("*models.User")).Return(repositories.ErrEmailTaken).Once()
	err = userService.Update(ctx, user, models.UserUpdate{Email: strPtr("b@x.com")})
	assert.ErrorIs(t, err, services.ErrEmailTaken)
	assert.Equal(t, before, *user)
}

func TestUserService_Delete(t *testing.T) {
	mockRepo := new(MockUserRepository)
	publisher := new(MockPublisher)
	userService := newUserService(mockRepo, publisher)
	user := &models.User{ID: "u1", Email: "a@x.com"}

	mockRepo.On("Delete", ctx, "u1").Return(nil).Once()
	publisher.On("PublishUserEvent", mock.MatchedBy(func(e map[string]interface{}) bool {
		return e["event"] == services.EventUserDeleted && e["user_id"] == "u1"
	})).Return(errors.New("broker down")).Once()

	// A failed publish is logged, not returned.
	require.NoError(t, userService.Delete(ctx, user))
	mockRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestUserService_Avatar(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := newUserService(mockRepo, nil)
	user := &models.User{ID: "u1"}

	mockRepo.On("Save", ctx, user).Return(nil).Twice()

	require.NoError(t, userService.SetAvatar(ctx, user, []byte{1, 2, 3}))
	assert.Equal(t, []byte{1, 2, 3}, user.Avatar)

	mockRepo.On("GetByID", ctx, "u1").Return(user, nil).Once()
	data, err := userService.GetAvatar(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	require.NoError(t, userService.ClearAvatar(ctx, user))
	assert.Nil(t, user.Avatar)

	mockRepo.On("GetByID", ctx, "u1").Return(user, nil).Once()
	_, err = userService.GetAvatar(ctx, "u1")
	assert.ErrorIs(t, err, services.ErrNotFound)

	mockRepo.On("GetByID", ctx, "nobody").Return(nil, repositories.ErrUserNotFound).Once()
	_, err = userService.GetAvatar(ctx, "nobody")
	assert.ErrorIs(t, err, services.ErrNotFound)
	mockRepo.AssertExpectations(t)
}
