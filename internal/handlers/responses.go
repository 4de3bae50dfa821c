package handlers

import (
	"errors"

	"userapi/internal/services"

	"github.com/gofiber/fiber/v2"
)

// empty sends status with no body. fiber's SendStatus would fill in the
// status text instead.
func empty(c *fiber.Ctx, status int) error {
	return c.Status(status).Send(nil)
}

// badInput maps validation and uniqueness failures to 400 and reports
// whether err was one of them.
func badInput(c *fiber.Ctx, err error) (bool, error) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return true, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "Validation failed",
			"fields": validationErr.Fields,
		})
	case errors.Is(err, services.ErrEmailTaken):
		return true, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email already registered",
		})
	}
	return false, nil
}
