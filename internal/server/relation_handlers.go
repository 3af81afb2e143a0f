package server

import (
	"github.com/gofiber/fiber/v2"
)

// AddRelation handles PUT /api/relations/:kind/:userId
func (s *Server) AddRelation(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	kind, err := parseRelationKind(c)
	if err != nil {
		return s.respond(c, err)
	}
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if err := s.relations.Add(c.UserContext(), kind, userID, targetID); err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{"kind": kind, "subject_id": userID, "object_id": targetID, "exists": true})
}

// RemoveRelation handles DELETE /api/relations/:kind/:userId
func (s *Server) RemoveRelation(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	kind, err := parseRelationKind(c)
	if err != nil {
		return s.respond(c, err)
	}
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if err := s.relations.Remove(c.UserContext(), kind, userID, targetID); err != nil {
		return s.respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RelationExists handles GET /api/relations/:kind/:userId
func (s *Server) RelationExists(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	kind, err := parseRelationKind(c)
	if err != nil {
		return s.respond(c, err)
	}
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	ok, err := s.relations.Exists(c.UserContext(), kind, userID, targetID)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{"kind": kind, "subject_id": userID, "object_id": targetID, "exists": ok})
}

// ListRelations handles GET /api/relations/:kind (friends, following, blocking).
func (s *Server) ListRelations(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	kind, err := parseRelationKind(c)
	if err != nil {
		return s.respond(c, err)
	}

	ids, err := s.relations.List(c.UserContext(), kind, userID)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{"kind": kind, "user_ids": nonNil(ids)})
}

// ListIncomingRelations handles GET /api/relations/:kind/incoming (friend_of, followers, blocked_by).
func (s *Server) ListIncomingRelations(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	kind, err := parseRelationKind(c)
	if err != nil {
		return s.respond(c, err)
	}

	ids, err := s.relations.ListIncoming(c.UserContext(), kind, userID)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{"kind": kind, "user_ids": nonNil(ids)})
}

// GetRelationStatus handles GET /api/relations/status/:userId
func (s *Server) GetRelationStatus(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	status, err := s.relations.Status(c.UserContext(), userID, targetID)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(status)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
