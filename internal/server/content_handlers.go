package server

import (
	"strings"

	"agora/internal/models"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Title    string `json:"title"`
		Content  string `json:"content"`
		Category string `json:"category"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.Content) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Title and content are required"))
	}

	post := &models.Post{Title: req.Title, Content: req.Content, Category: req.Category, UserID: userID}
	if err := s.contentRepo.CreatePost(c.UserContext(), post); err != nil {
		return s.respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if strings.TrimSpace(req.Content) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Content is required"))
	}

	ctx := c.UserContext()
	ok, err := s.contentRepo.Exists(ctx, models.TargetPost, postID)
	if err != nil {
		return s.respond(c, err)
	}
	if !ok {
		return s.respond(c, models.NewNotFoundError("Post", postID))
	}

	comment := &models.Comment{Content: req.Content, PostID: postID, UserID: userID}
	if err := s.contentRepo.CreateComment(ctx, comment); err != nil {
		return s.respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	return s.deleteContent(c, models.TargetPost)
}

// DeleteComment handles DELETE /api/comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	return s.deleteContent(c, models.TargetComment)
}

func (s *Server) deleteContent(c *fiber.Ctx, targetType models.TargetType) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return s.respond(c, err)
	}

	var removed service.CascadeReport
	if targetType == models.TargetPost {
		removed, err = s.lifecycle.DeletePost(c.UserContext(), actor, id)
	} else {
		removed, err = s.lifecycle.DeleteComment(c.UserContext(), actor, id)
	}
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{"deleted": fiber.Map{"target_type": targetType, "target_id": id}, "removed": removed})
}
