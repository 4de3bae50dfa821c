package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// BodyLimit rejects requests declaring a body over max bytes with 413.
// Multipart bodies are let through so SingleFile can answer oversize files
// itself. Use it with fiber's StreamRequestBody, under which the server
// streams large bodies instead of refusing them.
func BodyLimit(max int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Request().Header.ContentLength() <= max {
			return c.Next()
		}
		if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
			return c.Next()
		}
		// The body is left unread, so the connection cannot be reused.
		c.Context().SetConnectionClose()
		return fiber.ErrRequestEntityTooLarge
	}
}
