package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hightech/internal/middleware"
	"hightech/internal/repositories"
	"hightech/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cartApp() *fiber.App {
	app := fiber.New()
	app.Use(middleware.CartID(time.Hour))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(middleware.CurrentCartID(c))
	})
	return app
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestCartID_HeaderWins(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.CartHeader, "from-header")
	req.AddCookie(&http.Cookie{Name: middleware.CartCookie, Value: "from-cookie"})

	resp, err := cartApp().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "from-header", body(t, resp))
	assert.Equal(t, "from-header", resp.Header.Get(middleware.CartHeader))
}

func TestCartID_Cookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: middleware.CartCookie, Value: "from-cookie"})

	resp, err := cartApp().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "from-cookie", body(t, resp))
}

func TestCartID_IssuesNewID(t *testing.T) {
	resp, err := cartApp().Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	id := body(t, resp)
	assert.Len(t, id, 36)
	assert.Equal(t, id, resp.Header.Get(middleware.CartHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.CartHeader, strings.Repeat("x", 65))
	resp, err = cartApp().Test(req, -1)
	require.NoError(t, err)
	assert.Len(t, body(t, resp), 36, "oversized ids are replaced")
}

func TestAuthRequired(t *testing.T) {
	authService := services.NewAuthService(repositories.NewMockUserRepository(), "test_jwt_secret", time.Hour)
	_, err := authService.RegisterUser("admin@hightech.co.ke", "password123")
	require.NoError(t, err)
	token, _, err := authService.SignIn("admin@hightech.co.ke", "password123")
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/private", middleware.AuthRequired(authService), func(c *fiber.Ctx) error {
		p, ok := middleware.CurrentPrincipal(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(p.Email)
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == http.StatusOK {
				assert.Equal(t, "admin@hightech.co.ke", body(t, resp))
			}
		})
	}
}
