package server

import (
	"strconv"
	"strings"

	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
)

const maxTallyBatch = 100

// AddFavorite handles POST /api/posts/:id/favorite
func (s *Server) AddFavorite(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.engagement.AddFavorite(c.UserContext(), userID, postID); err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{"post_id": postID, "favorite": true})
}

// RemoveFavorite handles DELETE /api/posts/:id/favorite
func (s *Server) RemoveFavorite(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.engagement.RemoveFavorite(c.UserContext(), userID, postID); err != nil {
		return s.respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// IsFavorite handles GET /api/posts/:id/favorite
func (s *Server) IsFavorite(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ok, err := s.engagement.IsFavorite(c.UserContext(), userID, postID)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{"post_id": postID, "favorite": ok})
}

// ListFavorites handles GET /api/me/favorites?order=favorited_desc|post_created_desc
func (s *Server) ListFavorites(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	order, err := models.ParseFavoriteOrder(c.Query("order"))
	if err != nil {
		return s.respond(c, err)
	}
	page := parsePagination(c, 20)

	ids, err := s.engagement.ListFavorites(c.UserContext(), userID, order, page.Limit, page.Offset)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{"order": order, "post_ids": nonNil(ids)})
}

// CastVote handles PUT /api/votes/:type/:id with body {"value": 1|-1}.
func (s *Server) CastVote(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	targetType, err := parseTargetType(c)
	if err != nil {
		return s.respond(c, err)
	}
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Value int `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	ctx := c.UserContext()
	if err := s.engagement.CastVote(ctx, userID, targetType, targetID, req.Value); err != nil {
		return s.respond(c, err)
	}
	tally, err := s.engagement.Tally(ctx, targetType, targetID)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{"value": req.Value, "tally": tally})
}

// GetMyVote handles GET /api/votes/:type/:id
func (s *Server) GetMyVote(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	targetType, err := parseTargetType(c)
	if err != nil {
		return s.respond(c, err)
	}
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	v, err := s.engagement.GetVote(c.UserContext(), userID, targetType, targetID)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{"target_type": targetType, "target_id": targetID, "value": v})
}

// GetTally handles GET /api/votes/:type/:id/tally
func (s *Server) GetTally(c *fiber.Ctx) error {
	targetType, err := parseTargetType(c)
	if err != nil {
		return s.respond(c, err)
	}
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	tally, err := s.engagement.Tally(c.UserContext(), targetType, targetID)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{"tally": tally, "score": tally.Score()})
}

// GetTallies handles GET /api/votes/:type?ids=1,2,3
func (s *Server) GetTallies(c *fiber.Ctx) error {
	targetType, err := parseTargetType(c)
	if err != nil {
		return s.respond(c, err)
	}
	ids, err := parseIDList(c.Query("ids"))
	if err != nil {
		return s.respond(c, err)
	}

	tallies, err := s.engagement.TallyMany(c.UserContext(), targetType, ids)
	if err != nil {
		return s.respond(c, err)
	}
	out := make([]models.VoteTally, 0, len(ids))
	for _, id := range ids {
		t, ok := tallies[id]
		if !ok {
			t = models.VoteTally{TargetType: targetType, TargetID: id}
		}
		out = append(out, t)
	}
	return c.JSON(out)
}

// ListMyVotes handles GET /api/me/votes
func (s *Server) ListMyVotes(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	page := parsePagination(c, 20)

	votes, err := s.engagement.ListVotesByUser(c.UserContext(), userID, page.Limit)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(nonNil(votes))
}

// GetKarma handles GET /api/users/:id/karma
func (s *Server) GetKarma(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	n, err := s.engagement.UpvotesReceived(c.UserContext(), userID)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{"user_id": userID, "upvotes_received": n})
}

func parseIDList(raw string) ([]uint, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, models.NewValidationError("ids is required")
	}
	parts := strings.Split(raw, ",")
	if len(parts) > maxTallyBatch {
		return nil, models.NewValidationError("at most 100 ids per request")
	}
	seen := make(map[uint]struct{}, len(parts))
	ids := make([]uint, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil || n == 0 {
			return nil, models.NewValidationError("ids must be positive integers")
		}
		if _, dup := seen[uint(n)]; dup {
			continue
		}
		seen[uint(n)] = struct{}{}
		ids = append(ids, uint(n))
	}
	return ids, nil
}
