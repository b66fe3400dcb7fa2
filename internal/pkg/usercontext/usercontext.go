// Package usercontext carries the authenticated account of a request.
package usercontext

import "github.com/gofiber/fiber/v2"

// Locals and session keys
const (
	ContextKey  = "USER_CONTEXT"
	KeyUserID   = "user_id"
	KeyUsername = "username"
	KeyIsAdmin  = "isAdmin"
)

// UserContext is the account behind a request; the zero value is anonymous.
type UserContext struct {
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	IsLoggedIn bool   `json:"is_logged_in"`
	IsAdmin    bool   `json:"is_admin"`
}

// Anonymous is the context of a request without a session.
var Anonymous = UserContext{}

// GetUserContext returns the context set by the session middleware, or
// Anonymous when the middleware did not run.
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(ContextKey).(UserContext); ok {
		return ctx
	}
	return Anonymous
}

// Set stores ctx for the rest of the request.
func Set(c *fiber.Ctx, ctx UserContext) {
	c.Locals(ContextKey, ctx)
	if ctx.IsLoggedIn {
		c.Locals(KeyUserID, ctx.UserID)
	}
}

// GetUserID returns the session user id, 0 for anonymous requests.
func GetUserID(c *fiber.Ctx) uint {
	ctx := GetUserContext(c)
	if !ctx.IsLoggedIn {
		return 0
	}
	return ctx.UserID
}
