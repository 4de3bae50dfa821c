package app

import (
	"time"

	"userapi/internal/config"
	"userapi/internal/handlers"
	"userapi/internal/middleware"
	"userapi/internal/repositories"
	"userapi/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// New wires services and handlers over users and returns the Fiber app.
// events may be nil.
func New(cfg *config.Config, users repositories.UserRepository, events services.EventPublisher) (*fiber.App, *services.AuthService) {
	authService := services.NewAuthService(users, services.AuthConfig{
		JWTSecret:  cfg.JWTSecret,
		TokenTTL:   cfg.JWTTTL,
		BcryptCost: cfg.BcryptCost,
	}, events)
	userService := services.NewUserService(users, authService, events)

	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService, cfg.AvatarMaxBytes)

	// Bodies over the limit are streamed rather than refused by the server,
	// so an oversize avatar still reaches the upload filter and gets its
	// 400. Every other kind of body is capped by middleware.BodyLimit.
	app := fiber.New(fiber.Config{
		BodyLimit:         fiber.DefaultBodyLimit,
		StreamRequestBody: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(middleware.BodyLimit(fiber.DefaultBodyLimit))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	requireAuth := middleware.AuthRequired(authService)
	authHandler.RegisterRoutes(app, requireAuth)
	userHandler.RegisterRoutes(app, requireAuth)

	return app, authService
}
