package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PetsSanta/internal/pkg/styles"
)

// Pinger is a dependency the health check probes.
type Pinger func(ctx context.Context) error

// HandleStyles lists the style templates.
func HandleStyles(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"styles": styles.All()})
}

// DatabasePinger probes the SQL connection behind db.
func DatabasePinger(db *gorm.DB) Pinger {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// HandleHealth reports ok only when every dependency answers.
func HandleHealth(checks map[string]Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := fiber.StatusOK
		result := fiber.Map{}
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				fiberlog.Warnf("[Health] %s check failed: %v", name, err)
				result[name] = "unavailable"
				status = fiber.StatusServiceUnavailable
				continue
			}
			result[name] = "ok"
		}
		return c.Status(status).JSON(fiber.Map{"status": status == fiber.StatusOK, "checks": result})
	}
}
