package router

import (
	"strings"
	"time"

	"github.com/ManuelReschke/PetsSanta/app/controllers"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/env"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
)

// Deps are the handlers and shared stores the routes are built from.
type Deps struct {
	Auth       *controllers.AuthController
	Generation *controllers.GenerationController
	Billing    *controllers.BillingController
	Upload     *controllers.UploadController
	Health     fiber.Handler

	// Sessions overrides the Redis session store. Nil means Redis.
	Sessions *fibersession.Store
	// LimiterStorage backs the API rate limiter. Nil keeps counters in memory.
	LimiterStorage fiber.Storage
	// RateLimit is the number of API requests per client and minute; 0 disables it.
	RateLimit int
}

type ApiRouter struct {
	deps Deps
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", cors.New(cors.Config{
		AllowOrigins:     env.PublicBaseURL(),
		AllowCredentials: true,
	}))
	if h.deps.RateLimit > 0 {
		api.Use(limiter.New(limiter.Config{
			Max:        h.deps.RateLimit,
			Expiration: time.Minute,
			Storage:    h.deps.LimiterStorage,
			// Provider and processor deliveries are not throttled
			Next: func(c *fiber.Ctx) bool {
				return strings.HasPrefix(c.Path(), "/api/callback") || strings.HasPrefix(c.Path(), "/api/webhook")
			},
		}))
	}

	if h.deps.Health != nil {
		api.Get("/health", h.deps.Health)
	}
	api.Get("/styles", controllers.HandleStyles)

	// Unauthenticated deliveries from Kie.ai and Stripe
	api.Post("/callback", h.deps.Generation.HandleCallback)
	api.Post("/webhook", h.deps.Billing.HandleWebhook)

	auth := api.Group("/auth")
	auth.Post("/signup", h.deps.Auth.HandleSignup)
	auth.Post("/login", h.deps.Auth.HandleLogin)
	auth.Post("/logout", h.deps.Auth.HandleLogout)
	auth.Get("/me", middleware.RequireAPISessionAuth, h.deps.Auth.HandleMe)

	api.Post("/upload", middleware.RequireAPISessionAuth, h.deps.Upload.HandleUpload)

	generation := api.Group("/generation", middleware.RequireAPISessionAuth)
	generation.Post("/create", h.deps.Generation.HandleCreate)
	generation.Get("/status", h.deps.Generation.HandleStatus)
	generation.Post("/retry/:taskId", h.deps.Generation.HandleRetry)
	generation.Get("/my-tasks", h.deps.Generation.HandleMyTasks)

	api.Post("/checkout", middleware.RequireAPISessionAuth, h.deps.Billing.HandleCheckout)
	api.Get("/billing", middleware.RequireAPISessionAuth, h.deps.Billing.HandleOverview)
}

func NewApiRouter(deps Deps) *ApiRouter {
	return &ApiRouter{deps: deps}
}
