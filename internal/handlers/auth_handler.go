package handlers

import (
	"log"

	"hightech/internal/middleware"
	"hightech/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for admin authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	admin := router.Group("/admin")
	admin.Post("/login", h.HandleLogin)
	admin.Get("/session", h.HandleSession)
	admin.Post("/logout", middleware.AuthRequired(h.authService), h.HandleLogout)
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SessionResponse describes the caller's admin session.
type SessionResponse struct {
	LoggedIn  bool                `json:"logged_in"`
	Principal *services.Principal `json:"principal,omitempty"`
}

func sessionResponse(s services.Session) SessionResponse {
	p, ok := s.Principal()
	if !ok {
		return SessionResponse{}
	}
	return SessionResponse{LoggedIn: true, Principal: &p}
}

// HandleLogin signs an admin in and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing login request body: %v", err)
		return invalidBody(c, err)
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": services.LoginFailedMessage,
		})
	}

	token, session, err := h.authService.SignIn(req.Email, req.Password)
	if err != nil {
		log.Printf("Error during login for %s: %v", req.Email, err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": services.LoginFailedMessage,
		})
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"session": sessionResponse(session),
	})
}

// HandleLogout revokes the caller's token.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	token, _ := c.Locals(middleware.LocalToken).(string)
	if err := h.authService.SignOut(token); err != nil {
		log.Printf("Error during logout: %v", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid or expired token",
		})
	}
	return c.JSON(fiber.Map{
		"message": "Logged out",
		"session": sessionResponse(services.LoggedOut()),
	})
}

// HandleSession reports whether the bearer token, if any, is a live admin session.
func (h *AuthHandler) HandleSession(c *fiber.Ctx) error {
	token, ok := middleware.BearerToken(c)
	if !ok {
		return c.JSON(sessionResponse(services.LoggedOut()))
	}
	return c.JSON(sessionResponse(h.authService.Resolve(token)))
}
