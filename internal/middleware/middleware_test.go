package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	t.Run("generates request ID when not present", func(t *testing.T) {
		app := fiber.New()

		app.Use(RequestID())
		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendStatus(200)
		})

		req := httptest.NewRequest("GET", "/test", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	})

	t.Run("preserves existing request ID from header", func(t *testing.T) {
		app := fiber.New()

		app.Use(RequestID())
		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendStatus(200)
		})

		existingID := "existing-request-id-12345"
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Request-ID", existingID)

		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, existingID, resp.Header.Get("X-Request-ID"))
	})

	t.Run("stores request ID in locals", func(t *testing.T) {
		app := fiber.New()

		var seen string
		app.Use(RequestID())
		app.Get("/test", func(c *fiber.Ctx) error {
			seen = GetRequestID(c)
			return c.SendStatus(200)
		})

		req := httptest.NewRequest("GET", "/test", nil)
		_, err := app.Test(req)
		require.NoError(t, err)

		assert.NotEmpty(t, seen)
	})
}

func TestIdentity(t *testing.T) {
	t.Run("mints user ID when not present", func(t *testing.T) {
		app := fiber.New()

		var seen string
		app.Use(Identity())
		app.Get("/test", func(c *fiber.Ctx) error {
			seen = GetUserID(c)
			return c.SendStatus(200)
		})

		req := httptest.NewRequest("GET", "/test", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)

		echoed := resp.Header.Get("X-User-ID")
		assert.NotEmpty(t, echoed)
		assert.Equal(t, echoed, seen)
		assert.NoError(t, uuid.Validate(echoed))
	})

	t.Run("keeps valid client supplied ID", func(t *testing.T) {
		app := fiber.New()

		app.Use(Identity())
		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendStatus(200)
		})

		existing := uuid.New().String()
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-User-ID", existing)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, existing, resp.Header.Get("X-User-ID"))
	})

	t.Run("replaces malformed ID", func(t *testing.T) {
		app := fiber.New()

		app.Use(Identity())
		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendStatus(200)
		})

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-User-ID", "not-a-uuid")

		resp, err := app.Test(req)
		require.NoError(t, err)

		echoed := resp.Header.Get("X-User-ID")
		assert.NotEqual(t, "not-a-uuid", echoed)
		assert.NoError(t, uuid.Validate(echoed))
	})
}

func TestCORS(t *testing.T) {
	t.Run("handles preflight request", func(t *testing.T) {
		app := fiber.New()

		app.Use(CORS(DefaultCORSConfig()))
		app.Post("/test", func(c *fiber.Ctx) error {
			return c.SendStatus(200)
		})

		req := httptest.NewRequest("OPTIONS", "/test", nil)
		req.Header.Set("Origin", "https://app.example.com")

		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
	})

	t.Run("rejects unknown origin", func(t *testing.T) {
		app := fiber.New()

		cfg := DefaultCORSConfig()
		cfg.AllowOrigins = []string{"https://allowed.example.com"}
		app.Use(CORS(cfg))
		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendStatus(200)
		})

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "https://evil.example.com")

		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	})
}
