package auth

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/rutabus/fleet-service/internal/models"
)

const identityKey = "identity"

// Middleware extracts the bearer token and stores the identity in locals.
// Requests without a valid token are rejected; per-route role checks come
// on top via RequireRole.
func Middleware(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return unauthorized(c, "Missing Authorization header")
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		if tokenStr == header {
			return unauthorized(c, "Authorization header must use Bearer scheme")
		}

		identity, err := Parse(tokenStr, secret)
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// RequireRole rejects requests whose token does not carry one of the given
// roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := IdentityFromCtx(c)
		if identity == nil {
			return unauthorized(c, "Missing identity")
		}
		for _, role := range roles {
			if identity.Role == role {
				return c.Next()
			}
		}
		return c.Status(http.StatusForbidden).JSON(models.ErrorResponse{
			Error: "Insufficient role",
			Code:  http.StatusForbidden,
		})
	}
}

func IdentityFromCtx(c *fiber.Ctx) *Identity {
	identity, _ := c.Locals(identityKey).(*Identity)
	return identity
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusUnauthorized).JSON(models.ErrorResponse{
		Error: message,
		Code:  http.StatusUnauthorized,
	})
}
