package server

import (
	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
)

// FileReport handles POST /api/reports
func (s *Server) FileReport(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		TargetType string `json:"target_type"`
		TargetID   uint   `json:"target_id"`
		Reason     string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	targetType, err := models.ParseTargetType(req.TargetType)
	if err != nil {
		return s.respond(c, err)
	}
	if req.TargetID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("target_id is required"))
	}

	report, err := s.moderation.FileReport(c.UserContext(), userID, targetType, req.TargetID, req.Reason)
	if err != nil {
		return s.respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// ListReports handles GET /api/admin/reports?status=&target_type=
func (s *Server) ListReports(c *fiber.Ctx) error {
	filter := models.ReportFilter{
		Status:     models.ReportStatus(c.Query("status")),
		TargetType: models.TargetType(c.Query("target_type")),
	}
	page := parsePagination(c, 50)

	reports, err := s.moderation.ListReports(c.UserContext(), filter, page.Limit, page.Offset)
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(nonNil(reports))
}

// ListPendingReports handles GET /api/admin/reports/pending
func (s *Server) ListPendingReports(c *fiber.Ctx) error {
	reports, err := s.moderation.ListPending(c.UserContext())
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(nonNil(reports))
}

// CountPendingReports handles GET /api/admin/reports/count
func (s *Server) CountPendingReports(c *fiber.Ctx) error {
	n, err := s.moderation.PendingCount(c.UserContext())
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(fiber.Map{"pending": n})
}

// ResolveReport handles POST /api/admin/reports/:id/resolve
func (s *Server) ResolveReport(c *fiber.Ctx) error {
	return s.transitionReport(c, models.ReportResolved)
}

// DismissReport handles POST /api/admin/reports/:id/dismiss
func (s *Server) DismissReport(c *fiber.Ctx) error {
	return s.transitionReport(c, models.ReportDismissed)
}

func (s *Server) transitionReport(c *fiber.Ctx, status models.ReportStatus) error {
	adminID := c.Locals("userID").(uint)
	reportID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var report *models.Report
	if status == models.ReportResolved {
		report, err = s.moderation.Resolve(c.UserContext(), adminID, reportID)
	} else {
		report, err = s.moderation.Dismiss(c.UserContext(), adminID, reportID)
	}
	if err != nil {
		return s.respond(c, err)
	}
	return c.JSON(report)
}
