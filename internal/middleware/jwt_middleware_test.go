package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"userapi/internal/middleware"
	"userapi/internal/repositories"
	"userapi/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthRequired(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	authService := services.NewAuthService(repo, services.AuthConfig{
		JWTSecret:  "test_jwt_secret",
		BcryptCost: bcrypt.MinCost,
	}, nil)

	ctx := context.Background()
	_, err := authService.Register(ctx, services.RegisterRequest{Name: "A", Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)
	user, token, err := authService.Login(ctx, "a@x.com", "secret123")
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/me", middleware.AuthRequired(authService), func(c *fiber.Ctx) error {
		assert.Equal(t, token, middleware.CurrentToken(c))
		return c.SendString(middleware.CurrentUser(c).ID)
	})

	cases := map[string]struct {
		header string
		status int
	}{
		"missing header": {"", http.StatusUnauthorized},
		"wrong scheme":   {"Basic " + token, http.StatusUnauthorized},
		"bad token":      {"Bearer not-a-jwt", http.StatusUnauthorized},
		"valid":          {"Bearer " + token, http.StatusOK},
		"lowercase":      {"bearer " + token, http.StatusOK},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			status, body := do(t, app, req)
			assert.Equal(t, tc.status, status)
			if tc.status == http.StatusOK {
				assert.Equal(t, user.ID, body)
			} else {
				assert.JSONEq(t, `{"error":"Please authenticate."}`, body)
			}
		})
	}

	require.NoError(t, authService.Logout(ctx, user, token))
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	status, _ := do(t, app, req)
	assert.Equal(t, http.StatusUnauthorized, status)
}
