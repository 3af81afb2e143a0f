package server

import (
	"errors"
	"strings"
	"unicode"

	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten signals that a helper already wrote the HTTP response.
// Handlers return nil when they see it so the ErrorHandler stays out.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return Pagination{Limit: limit, Offset: offset}
}

// parseID extracts a route parameter as a positive uint. On failure it
// writes a 400 and returns errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam turns "id" into "ID" and "userId" into "user ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if prefix, ok := strings.CutSuffix(param, "Id"); ok {
		return strings.ToLower(strings.Join(splitCamel(prefix), " ")) + " ID"
	}
	return param
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// statusFor maps an error code to its HTTP status.
func statusFor(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeConflict:
		return fiber.StatusConflict
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) respond(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, statusFor(err), err)
}

// currentUser resolves the authenticated caller. The admin flag always
// comes from storage, never from the token.
func (s *Server) currentUser(c *fiber.Ctx) (models.AuthenticatedUser, error) {
	if actor, ok := c.Locals("actor").(models.AuthenticatedUser); ok {
		return actor, nil
	}
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return models.AuthenticatedUser{}, models.NewUnauthorizedError("Authorization required")
	}
	admin, err := s.userRepo.IsAdmin(c.UserContext(), userID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return models.AuthenticatedUser{}, models.NewUnauthorizedError("Unknown user")
		}
		return models.AuthenticatedUser{}, err
	}
	actor := models.AuthenticatedUser{ID: userID, IsAdmin: admin}
	c.Locals("actor", actor)
	return actor, nil
}

func parseTargetType(c *fiber.Ctx) (models.TargetType, error) {
	return models.ParseTargetType(c.Params("type"))
}

func parseRelationKind(c *fiber.Ctx) (models.RelationKind, error) {
	return models.ParseRelationKind(c.Params("kind"))
}
