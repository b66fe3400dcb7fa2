package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuelReschke/PetsSanta/app/controllers"
	"github.com/ManuelReschke/PetsSanta/app/repository"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/apidocs"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/artifact"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/billing"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/cache"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/database"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/env"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/generation"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/kieai"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/metrics"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/router"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/session"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/upload"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/petssanta to project root
		"../../../", // Fallback
	}

	// Find the correct base path
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}

	artifactCfg, err := artifact.LoadConfig()
	if err != nil {
		panic(err)
	}
	deps := buildDependencies(artifactCfg)

	// init fiber app
	app := fiber.New(fiber.Config{
		// multipart overhead on top of the largest accepted photo
		BodyLimit: upload.MaxFileSize + 1<<20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New(), metrics.RequestDuration())

	// metrics
	metricsAuth := basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "test"),
		},
	})
	app.Get("/metrics", metricsAuth, adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/monitor", metricsAuth, monitor.New())

	// static uploads of the local artifact driver
	if artifactCfg.Driver == artifact.DriverLocal {
		app.Static("/uploads", artifactCfg.LocalDir, fiber.Static{
			CacheDuration: 10 * time.Second,
			Compress:      false,
			MaxAge:        604800, // 7 days
		})
	}

	// SWAGGER / OPENAPI
	if _, err := apidocs.Load(context.Background(), basePath+apidocs.DefaultPath); err != nil {
		log.Printf("[Docs] %v", err)
	}
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + apidocs.DefaultPath,
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, deps)

	return app
}

func buildDependencies(artifactCfg *artifact.Config) router.Deps {
	db := database.GetDB()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var provider generation.Provider
	if kieCfg, err := kieai.LoadConfig(); err != nil {
		// Create and retry answer 503 until the key is set
		log.Printf("[KieAI] %v, generation is disabled", err)
	} else {
		provider = kieai.NewClientFromConfig(kieCfg)
	}

	store, err := artifact.NewStore(ctx, artifactCfg)
	if err != nil {
		panic(err)
	}
	fetcher := artifact.NewFetcher(artifactCfg.FetchTimeout, artifactCfg.MaxBytes)

	generationSvc := generation.NewService(db, provider, store, fetcher, *generation.LoadConfig())

	billingCfg := billing.LoadConfig()
	var processor billing.Processor
	if billingCfg.SecretKey != "" {
		processor = billing.NewStripeProcessor(billingCfg.SecretKey)
	} else {
		log.Printf("[Billing] STRIPE_SECRET_KEY is not set, checkout is disabled")
	}
	billingSvc := billing.NewService(db, processor, *billingCfg)

	users := repository.NewRepositories(db).User

	return router.Deps{
		Auth:       controllers.NewAuthController(db, env.GetEnvInt("SIGNUP_BONUS_CREDITS", 0)),
		Generation: controllers.NewGenerationController(generationSvc),
		Billing:    controllers.NewBillingController(billingSvc, users),
		Upload:     controllers.NewUploadController(store),
		Health: controllers.HandleHealth(map[string]controllers.Pinger{
			"database": controllers.DatabasePinger(db),
			"cache":    cache.Ping,
		}),
		LimiterStorage: cache.NewFiberStorage(session.LimiterDatabase),
		RateLimit:      env.GetEnvInt("API_RATE_LIMIT_PER_MINUTE", 60),
	}
}
