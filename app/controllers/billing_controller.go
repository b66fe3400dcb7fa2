package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PetsSanta/app/repository"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/billing"
)

// BillingController handles credit pack purchases.
type BillingController struct {
	svc   *billing.Service
	users repository.UserRepository
}

// NewBillingController creates a new billing controller
func NewBillingController(svc *billing.Service, users repository.UserRepository) *BillingController {
	return &BillingController{svc: svc, users: users}
}

// HandleCheckout starts a hosted checkout for one credit pack.
// Response: { sessionId, url }
func (bc *BillingController) HandleCheckout(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	user, err := bc.users.GetByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	if err != nil {
		return writeServiceError(c, err, "Failed to create checkout session")
	}

	session, err := bc.svc.CreateCheckout(c.UserContext(), user)
	if err != nil {
		return writeServiceError(c, err, "Failed to create checkout session")
	}
	return c.JSON(session)
}

// HandleWebhook receives Stripe events. The raw body is verified against the
// Stripe-Signature header before anything else happens.
func (bc *BillingController) HandleWebhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)
	if err := bc.svc.HandleWebhook(c.UserContext(), payload, c.Get("Stripe-Signature")); err != nil {
		return writeServiceError(c, err, "Webhook processing failed")
	}
	return c.JSON(fiber.Map{"received": true})
}

// HandleOverview returns { credits, payments, usageHistory }.
func (bc *BillingController) HandleOverview(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	overview, err := bc.svc.Overview(c.UserContext(), userID)
	if err != nil {
		return writeServiceError(c, err, "Failed to fetch billing data")
	}
	return c.JSON(overview)
}
