package router

import (
	"github.com/ManuelReschke/PetsSanta/internal/pkg/middleware"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/session"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
)

type HttpRouter struct {
	sessions *fibersession.Store
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	if h.sessions != nil {
		session.UseStore(h.sessions)
	} else {
		session.NewSessionStore()
	}

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)
}

func NewHttpRouter(deps Deps) *HttpRouter {
	return &HttpRouter{sessions: deps.Sessions}
}
