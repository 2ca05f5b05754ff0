package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userIDHeader = "X-User-ID"

// Identity resolves the caller's opaque user ID. The concierge has no account
// system; the client mints an ID on first use and presents it on every
// request so memory facts accumulate per user. A request without one gets a
// fresh ID echoed back for the client to keep.
func Identity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get(userIDHeader)
		if userID == "" || uuid.Validate(userID) != nil {
			userID = uuid.New().String()
		}

		c.Set(userIDHeader, userID)
		c.Locals("userID", userID)

		return c.Next()
	}
}

// GetUserID gets the resolved user ID from context
func GetUserID(c *fiber.Ctx) string {
	if userID, ok := c.Locals("userID").(string); ok {
		return userID
	}
	return ""
}
