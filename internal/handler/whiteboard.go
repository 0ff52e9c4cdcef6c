package handler

import (
	"github.com/gofiber/fiber/v2"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/store"
)

// WhiteboardHandler serves the REST document path. Reads and writes go
// through the tiered store directly, independent of the live socket fanout,
// but both verbs require the caller to be the project's owner or a
// collaborator, the same check the socket path applies.
type WhiteboardHandler struct {
	store *store.TieredStore
	authz auth.Authorizer
}

func NewWhiteboardHandler(s *store.TieredStore, authz auth.Authorizer) *WhiteboardHandler {
	return &WhiteboardHandler{store: s, authz: authz}
}

// GetWhiteboard returns the current document for a project. A project that
// was never drawn on yields an empty document, not an error.
func (h *WhiteboardHandler) GetWhiteboard(c *fiber.Ctx) error {
	projectID, err := c.ParamsInt("projectId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project id"})
	}

	userID, ok := c.Locals("userID").(int64)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization token"})
	}
	if err := h.authz.Authorize(c.UserContext(), userID, int64(projectID)); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No access to this project"})
	}

	data := h.store.Get(c.UserContext(), int64(projectID))
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// UpdateWhiteboard replaces the document whole. Last writer wins; there is
// no merge of concurrent edits.
func (h *WhiteboardHandler) UpdateWhiteboard(c *fiber.Ctx) error {
	projectID, err := c.ParamsInt("projectId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project id"})
	}

	userID, ok := c.Locals("userID").(int64)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization token"})
	}
	if err := h.authz.Authorize(c.UserContext(), userID, int64(projectID)); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No access to this project"})
	}

	var data model.WhiteboardData
	if err := c.BodyParser(&data); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid whiteboard data"})
	}

	if err := h.store.Set(c.UserContext(), int64(projectID), data); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save whiteboard"})
	}

	return c.JSON(fiber.Map{"success": true})
}
