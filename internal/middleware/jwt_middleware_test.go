package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"toko-checkout/internal/middleware"
	"toko-checkout/internal/models"
	"toko-checkout/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noUsers satisfies repositories.UserRepository; token checks never hit it.
type noUsers struct{}

func (noUsers) Create(ctx context.Context, user *models.User) error { return nil }
func (noUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, nil
}
func (noUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) { return nil, nil }

func newApp(t *testing.T) (*fiber.App, *services.AuthService) {
	t.Helper()
	authService := services.NewAuthService(noUsers{}, "test_jwt_secret")
	app := fiber.New()
	app.Get("/me", middleware.AuthRequired(authService), func(c *fiber.Ctx) error {
		p := middleware.PrincipalFrom(c)
		return c.JSON(fiber.Map{"user_id": p.UserID, "role": p.Role})
	})
	app.Get("/admin", middleware.AuthRequired(authService), middleware.AdminOnly(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app, authService
}

func get(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestAuthRequired(t *testing.T) {
	app, authService := newApp(t)

	assert.Equal(t, http.StatusUnauthorized, get(t, app, "/me", ""))
	assert.Equal(t, http.StatusUnauthorized, get(t, app, "/me", "garbage"))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := authService.IssueToken(&models.User{ID: "user-1", Username: "budi"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(t, app, "/me", token))
}

func TestAdminOnly(t *testing.T) {
	app, authService := newApp(t)

	customerToken, err := authService.IssueToken(&models.User{ID: "user-1", Role: models.RoleCustomer})
	require.NoError(t, err)
	adminToken, err := authService.IssueToken(&models.User{ID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, get(t, app, "/admin", customerToken))
	assert.Equal(t, http.StatusNoContent, get(t, app, "/admin", adminToken))
}
