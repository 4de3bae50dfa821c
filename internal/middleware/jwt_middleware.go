package middleware

import (
	"log"
	"strings"

	"userapi/internal/models"
	"userapi/internal/services"

	"github.com/gofiber/fiber/v2"
)

const (
	localUser  = "user"
	localToken = "token"
)

// AuthRequired is a Fiber middleware that resolves the bearer token to a
// user. The user and the raw token are stored in the context for
// subsequent handlers.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := extractBearer(c.Get(fiber.HeaderAuthorization))
		if tokenString == "" {
			return unauthorized(c)
		}

		user, err := authService.Authenticate(c.UserContext(), tokenString)
		if err != nil {
			log.Printf("Authentication failed: %v", err)
			return unauthorized(c)
		}

		c.Locals(localUser, user)
		c.Locals(localToken, tokenString)
		return c.Next()
	}
}

// CurrentUser returns the user resolved by AuthRequired.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localUser).(*models.User)
	return user
}

// CurrentToken returns the token used to authenticate the request.
func CurrentToken(c *fiber.Ctx) string {
	token, _ := c.Locals(localToken).(string)
	return token
}

// Expected format: "Bearer <token>", scheme case-insensitive.
func extractBearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Please authenticate.",
	})
}
