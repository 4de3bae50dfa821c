package handlers

import (
	"log"

	"userapi/internal/middleware"
	"userapi/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles registration and session endpoints.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// RegisterRoutes registers the authentication routes under /users.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	users := router.Group("/users")
	users.Post("/", h.HandleRegister)
	users.Post("/login", h.HandleLogin)
	users.Post("/logout", requireAuth, h.HandleLogout)
	users.Post("/logoutAll", requireAuth, h.HandleLogoutAll)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req services.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing register request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	user, err := h.authService.Register(c.UserContext(), req)
	if err != nil {
		log.Printf("Error registering user: %v", err)
		if handled, respErr := badInput(c, err); handled {
			return respErr
		}
		return empty(c, fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user": user,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and issues a token. Every failure is a
// bare 400 so callers cannot tell which part was wrong.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return empty(c, fiber.StatusBadRequest)
	}

	user, token, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		log.Printf("Login failed: %v", err)
		return empty(c, fiber.StatusBadRequest)
	}

	return c.JSON(fiber.Map{
		"user":  user,
		"token": token,
	})
}

// HandleLogout revokes the token used for this request.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if err := h.authService.Logout(c.UserContext(), user, middleware.CurrentToken(c)); err != nil {
		log.Printf("Error logging out: %v", err)
		return empty(c, fiber.StatusInternalServerError)
	}
	return empty(c, fiber.StatusOK)
}

// HandleLogoutAll revokes every token of the current user.
func (h *AuthHandler) HandleLogoutAll(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if err := h.authService.LogoutAll(c.UserContext(), user); err != nil {
		log.Printf("Error logging out everywhere: %v", err)
		return empty(c, fiber.StatusInternalServerError)
	}
	return empty(c, fiber.StatusOK)
}
