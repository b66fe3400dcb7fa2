package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PetsSanta/internal/pkg/billing"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/generation"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/ledger"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/upload"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/usercontext"
)

func jsonError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// requireUser returns the session user id, or writes a 401 and reports false.
func requireUser(c *fiber.Ctx) (uint, bool) {
	userID := usercontext.GetUserID(c)
	if userID == 0 {
		_ = jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
		return 0, false
	}
	return userID, true
}

// writeServiceError maps domain errors to HTTP answers. Unknown errors are
// logged and answered with fallback so internals never reach the client.
func writeServiceError(c *fiber.Ctx, err error, fallback string) error {
	var insufficient *ledger.InsufficientCreditsError
	switch {
	case errors.As(err, &insufficient):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    "Insufficient credits",
			"required": insufficient.Required,
			"current":  insufficient.Current,
		})
	case errors.Is(err, ledger.ErrAccountNotFound):
		return jsonError(c, fiber.StatusNotFound, "User not found")
	case errors.Is(err, generation.ErrValidation):
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, generation.ErrTaskNotFound):
		return jsonError(c, fiber.StatusNotFound, "Task not found")
	case errors.Is(err, generation.ErrInvalidState):
		return jsonError(c, fiber.StatusBadRequest, "Only failed tasks can be retried")
	case errors.Is(err, generation.ErrRetryLimitExceeded):
		return jsonError(c, fiber.StatusBadRequest, "Maximum retry count exceeded")
	case errors.Is(err, generation.ErrNotConfigured):
		return jsonError(c, fiber.StatusServiceUnavailable, "Image generation is not configured")
	case errors.Is(err, generation.ErrProviderSubmitFailed):
		return jsonError(c, fiber.StatusBadGateway, "Failed to submit task to the generation provider")
	case errors.Is(err, billing.ErrInvalidSignature):
		return jsonError(c, fiber.StatusBadRequest, "Invalid signature")
	case errors.Is(err, billing.ErrMissingMetadata):
		return jsonError(c, fiber.StatusBadRequest, "Missing required metadata")
	case errors.Is(err, billing.ErrProcessor):
		return jsonError(c, fiber.StatusBadGateway, "Payment provider request failed")
	case errors.Is(err, billing.ErrNotConfigured):
		return jsonError(c, fiber.StatusServiceUnavailable, "Payments are not configured")
	case errors.Is(err, upload.ErrFileTooLarge):
		return jsonError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, upload.ErrUnsupportedType),
		errors.Is(err, upload.ErrEmptyFile),
		errors.Is(err, upload.ErrCorruptImage),
		errors.Is(err, upload.ErrImageTooSmall):
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}

	fiberlog.Errorf("%s %s: %v", c.Method(), c.Path(), err)
	return jsonError(c, fiber.StatusInternalServerError, fallback)
}
