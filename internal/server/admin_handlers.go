package server

import (
	"github.com/gofiber/fiber/v2"
)

// DeleteUser handles DELETE /api/admin/users/:id
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return s.respond(c, err)
	}

	removed, err := s.lifecycle.DeleteUser(c.UserContext(), actor, userID)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{"deleted_user_id": userID, "removed": removed})
}

// RunContentCascade handles POST /api/admin/cascade/content/:type/:id. It
// clears engagement rows pointing at content that was removed elsewhere.
func (s *Server) RunContentCascade(c *fiber.Ctx) error {
	targetType, err := parseTargetType(c)
	if err != nil {
		return s.respond(c, err)
	}
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	removed, err := s.cascade.OnContentDeleted(c.UserContext(), targetType, targetID)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{"removed": removed})
}

// GetFeatureFlags handles GET /api/admin/feature-flags
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	return c.JSON(fiber.Map{
		"flags":   s.featureFlags.Raw(),
		"enabled": s.featureFlags.Snapshot(userID),
	})
}
