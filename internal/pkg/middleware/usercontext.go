package middleware

import (
	"github.com/ManuelReschke/PetsSanta/internal/pkg/session"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// UserContextMiddleware resolves the session of every request into a
// usercontext.UserContext. Requests without a valid session are anonymous.
func UserContextMiddleware(c *fiber.Ctx) error {
	store := session.GetSessionStore()
	if store == nil {
		usercontext.Set(c, usercontext.Anonymous)
		return c.Next()
	}

	sess, err := store.Get(c)
	if err != nil {
		log.Warnf("[Session] Failed to load session: %v", err)
		usercontext.Set(c, usercontext.Anonymous)
		return c.Next()
	}

	userID, ok := sess.Get(usercontext.KeyUserID).(uint)
	if !ok || userID == 0 {
		usercontext.Set(c, usercontext.Anonymous)
		return c.Next()
	}

	username, _ := sess.Get(usercontext.KeyUsername).(string)
	isAdmin, _ := sess.Get(usercontext.KeyIsAdmin).(bool)
	usercontext.Set(c, usercontext.UserContext{
		UserID:     userID,
		Username:   username,
		IsLoggedIn: true,
		IsAdmin:    isAdmin,
	})
	return c.Next()
}
