package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Cart identification.
const (
	CartCookie = "cart_id"
	CartHeader = "X-Cart-ID"
	LocalCart  = "cart_id"
)

const maxCartIDLength = 64

// CartID resolves the shopper's cart id from the X-Cart-ID header or the cart_id cookie,
// issuing a new one when neither is present. The id is echoed in the response header.
func CartID(ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(CartHeader)
		if id == "" {
			id = c.Cookies(CartCookie)
		}
		if id == "" || len(id) > maxCartIDLength {
			id = uuid.New().String()
		}

		cookie := &fiber.Cookie{
			Name:     CartCookie,
			Value:    id,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		}
		if ttl > 0 {
			cookie.Expires = time.Now().Add(ttl)
		}
		c.Cookie(cookie)
		c.Set(CartHeader, id)
		c.Locals(LocalCart, id)
		return c.Next()
	}
}

// CurrentCartID returns the cart id stored by CartID.
func CurrentCartID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalCart).(string)
	return id
}
