package middleware

import (
	"strings"

	"github.com/estate-crm/backend/internal/auth"
	"github.com/estate-crm/backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const CtxOperatorID = "operator_id"

// AuthMiddleware parses the operator bearer token. With AUTH_REQUIRED
// unset, requests without a token pass through anonymously; a token that
// is present must still be valid.
func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			if !cfg.AuthRequired {
				return c.Next()
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(CtxOperatorID, claims.OperatorID)
		return c.Next()
	}
}

// GetOperatorID returns the authenticated operator, or nil for anonymous
// requests.
func GetOperatorID(c *fiber.Ctx) *uuid.UUID {
	id, ok := c.Locals(CtxOperatorID).(uuid.UUID)
	if !ok {
		return nil
	}
	return &id
}
