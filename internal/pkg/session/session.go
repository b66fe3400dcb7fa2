package session

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/ManuelReschke/PetsSanta/internal/pkg/cache"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/env"
)

// Logical Redis databases. The cache uses 0.
const (
	SessionDatabase = 1
	LimiterDatabase = 2
)

var sessionStore *session.Store

func NewSessionStore() *session.Store {
	sessionStore = session.New(Config(cache.NewFiberStorage(SessionDatabase)))
	return sessionStore
}

// Config is the cookie session configuration. A nil storage keeps sessions in
// memory.
func Config(storage fiber.Storage) session.Config {
	return session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		CookieSecure:   !env.IsDev(),
		CookieSameSite: "Lax",
		Expiration:     time.Hour * 24 * 7,
		KeyLookup:      "cookie:session_id",
	}
}

// UseStore replaces the process-wide store.
func UseStore(store *session.Store) {
	sessionStore = store
}

func GetSessionStore() *session.Store {
	return sessionStore
}

// Destroy removes the user's session entirely
func Destroy(c *fiber.Ctx) error {
	if sessionStore == nil {
		return fmt.Errorf("session store not initialized")
	}

	sess, err := sessionStore.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %v", err)
	}
	return sess.Destroy()
}
