package handlers

import (
	"encoding/json"
	"errors"
	"log"

	"userapi/internal/middleware"
	"userapi/internal/models"
	"userapi/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AvatarContentType is sent for every avatar regardless of stored format.
const AvatarContentType = "image/jpg"

// UserHandler handles profile and avatar endpoints.
type UserHandler struct {
	service *services.UserService
	upload  fiber.Handler
}

// NewUserHandler creates a new UserHandler. Avatars are limited to
// maxAvatarBytes.
func NewUserHandler(service *services.UserService, maxAvatarBytes int64) *UserHandler {
	return &UserHandler{
		service: service,
		upload:  middleware.SingleFile("avatar", middleware.ImageUpload(maxAvatarBytes)),
	}
}

// RegisterRoutes registers the user routes. The /me routes come before
// /:id so "me" is never taken for an id.
func (h *UserHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	users := router.Group("/users")
	users.Get("/", requireAuth, h.HandleList)
	users.Get("/me", requireAuth, h.HandleGetMe)
	users.Patch("/me", requireAuth, h.HandleUpdateMe)
	users.Delete("/me", requireAuth, h.HandleDeleteMe)

	avatarErrors := middleware.MapErrors(avatarError)
	users.Post("/me/avatar", requireAuth, avatarErrors, h.upload, h.HandleSetAvatar)
	users.Delete("/me/avatar", requireAuth, avatarErrors, h.upload, h.HandleClearAvatar)

	users.Get("/:id", h.HandleGetByID)
	users.Get("/:id/avatar", h.HandleGetAvatar)
}

// HandleList returns every user.
func (h *UserHandler) HandleList(c *fiber.Ctx) error {
	users, err := h.service.List(c.UserContext())
	if err != nil {
		log.Printf("Error listing users: %v", err)
		return empty(c, fiber.StatusInternalServerError)
	}
	return c.JSON(users)
}

// HandleGetMe returns the authenticated user.
func (h *UserHandler) HandleGetMe(c *fiber.Ctx) error {
	return c.JSON(middleware.CurrentUser(c))
}

// HandleGetByID returns a single user, or 404 when there is none.
func (h *UserHandler) HandleGetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	user, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return empty(c, fiber.StatusNotFound)
		}
		log.Printf("Error getting user by ID %s: %v", id, err)
		return empty(c, fiber.StatusInternalServerError)
	}
	return c.JSON(user)
}

// HandleUpdateMe applies a partial update limited to models.UpdatableFields.
func (h *UserHandler) HandleUpdateMe(c *fiber.Ctx) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if !models.AllowedUpdate(raw) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid updates!",
		})
	}

	var patch models.UserUpdate
	if err := json.Unmarshal(c.Body(), &patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	user := middleware.CurrentUser(c)
	if err := h.service.Update(c.UserContext(), user, patch); err != nil {
		log.Printf("Error updating user %s: %v", user.ID, err)
		if handled, respErr := badInput(c, err); handled {
			return respErr
		}
		return empty(c, fiber.StatusBadRequest)
	}
	return c.JSON(user)
}

// HandleDeleteMe deletes the authenticated user and echoes the record.
func (h *UserHandler) HandleDeleteMe(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if err := h.service.Delete(c.UserContext(), user); err != nil {
		log.Printf("Error deleting user %s: %v", user.ID, err)
		return empty(c, fiber.StatusInternalServerError)
	}
	return c.JSON(user)
}

// HandleSetAvatar stores the uploaded avatar. Errors go to avatarError.
func (h *UserHandler) HandleSetAvatar(c *fiber.Ctx) error {
	file := middleware.File(c)
	if file == nil || len(file.Data) == 0 {
		return middleware.ErrNoFile
	}
	if err := h.service.SetAvatar(c.UserContext(), middleware.CurrentUser(c), file.Data); err != nil {
		return err
	}
	return empty(c, fiber.StatusOK)
}

// HandleClearAvatar removes the avatar. Errors go to avatarError.
func (h *UserHandler) HandleClearAvatar(c *fiber.Ctx) error {
	if err := h.service.ClearAvatar(c.UserContext(), middleware.CurrentUser(c)); err != nil {
		return err
	}
	return empty(c, fiber.StatusOK)
}

// HandleGetAvatar serves the avatar bytes of a user.
func (h *UserHandler) HandleGetAvatar(c *fiber.Ctx) error {
	id := c.Params("id")
	data, err := h.service.GetAvatar(c.UserContext(), id)
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			log.Printf("Error getting avatar for user %s: %v", id, err)
		}
		return empty(c, fiber.StatusNotFound)
	}
	c.Set(fiber.HeaderContentType, AvatarContentType)
	return c.Send(data)
}

func avatarError(c *fiber.Ctx, err error) error {
	log.Printf("Avatar request failed: %v", err)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": middleware.UploadMessage(err, "Unable to update avatar"),
	})
}
