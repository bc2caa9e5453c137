package middleware

import (
	"log"
	"strings"

	"hightech/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by the middlewares.
const (
	LocalPrincipal = "principal"
	LocalToken     = "token"
)

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthRequired is a Fiber middleware that only lets logged-in admins through.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		tokenString, ok := BearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		principal, loggedIn := authService.Resolve(tokenString).Principal()
		if !loggedIn {
			log.Printf("Rejected admin request to %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		c.Locals(LocalPrincipal, principal)
		c.Locals(LocalToken, tokenString)
		return c.Next()
	}
}

// CurrentPrincipal returns the principal stored by AuthRequired.
func CurrentPrincipal(c *fiber.Ctx) (services.Principal, bool) {
	p, ok := c.Locals(LocalPrincipal).(services.Principal)
	return p, ok
}
