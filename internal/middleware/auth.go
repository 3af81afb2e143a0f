package middleware

import (
	"strconv"
	"strings"

	"agora/internal/config"
	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// AuthRequired validates the bearer JWT and stores the subject as the
// "userID" local. The admin flag is looked up later by the server, never
// trusted from the token.
func AuthRequired(c *fiber.Ctx) error {
	userID, err := userIDFromHeader(c.Get("Authorization"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized, err)
	}

	c.Locals("userID", userID)
	c.SetUserContext(WithUserID(c.UserContext(), userID))
	return c.Next()
}

func userIDFromHeader(header string) (uint, error) {
	if header == "" {
		return 0, models.NewUnauthorizedError("Authorization header required")
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, models.NewUnauthorizedError("Invalid authorization header format")
	}
	return ParseSubject(parts[1])
}

// ParseSubject validates an HMAC-signed token and returns its "sub" claim as a user ID.
func ParseSubject(tokenString string) (uint, error) {
	if cfg == nil {
		return 0, models.NewUnauthorizedError("Authentication is not configured")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, models.NewUnauthorizedError("Invalid or expired token")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return 0, models.NewUnauthorizedError("Invalid token structure - missing subject")
	}

	id, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewUnauthorizedError("Invalid user ID in token")
	}
	return uint(id), nil
}
