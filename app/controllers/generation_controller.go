package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PetsSanta/app/models"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/generation"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/kieai"
)

// GenerationController exposes the generation task lifecycle over HTTP.
type GenerationController struct {
	svc *generation.Service
}

// NewGenerationController creates a new generation controller
func NewGenerationController(svc *generation.Service) *GenerationController {
	return &GenerationController{svc: svc}
}

type createTaskRequest struct {
	ImageURL    string `json:"imageUrl"`
	Style       string `json:"style"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio"`
	Resolution  string `json:"resolution"`
}

// HandleCreate charges the user and starts a generation.
// Request: JSON { imageUrl, style, prompt, aspectRatio?, resolution? }
// Response: { id, status, creditsRemaining }
func (gc *GenerationController) HandleCreate(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req createTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.ImageURL) == "" || strings.TrimSpace(req.Style) == "" || strings.TrimSpace(req.Prompt) == "" {
		return jsonError(c, fiber.StatusBadRequest, "Missing required fields: imageUrl, style, prompt")
	}

	handle, err := gc.svc.Create(c.UserContext(), generation.CreateInput{
		UserID:      userID,
		ImageURL:    req.ImageURL,
		Style:       req.Style,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Resolution:  req.Resolution,
	})
	if errors.Is(err, generation.ErrProviderSubmitFailed) && handle != nil {
		// The charge stands; the client gets the failed task to offer a retry
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":            "Failed to create generation task",
			"id":               handle.ID,
			"status":           handle.Status,
			"creditsRemaining": handle.CreditsRemaining,
		})
	}
	if err != nil {
		return writeServiceError(c, err, "Failed to create generation task")
	}
	return c.JSON(handle)
}

// HandleStatus returns the task snapshot, polling the provider while the task
// is in flight.
func (gc *GenerationController) HandleStatus(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	taskID := strings.TrimSpace(c.Query("taskId"))
	if taskID == "" {
		return jsonError(c, fiber.StatusBadRequest, "Missing taskId parameter")
	}

	task, err := gc.svc.PollStatus(c.UserContext(), userID, taskID)
	if err != nil {
		return writeServiceError(c, err, "Failed to get task status")
	}
	return c.JSON(task)
}

// HandleRetry resubmits a failed task.
func (gc *GenerationController) HandleRetry(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	handle, err := gc.svc.Retry(c.UserContext(), userID, c.Params("taskId"))
	if err != nil {
		return writeServiceError(c, err, "Failed to retry task")
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"taskId":     handle.ID,
		"retryCount": handle.RetryCount,
		"status":     handle.Status,
	})
}

// HandleMyTasks lists the user's tasks, newest first.
func (gc *GenerationController) HandleMyTasks(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	tasks, err := gc.svc.ListTasks(c.UserContext(), userID)
	if err != nil {
		return writeServiceError(c, err, "Failed to fetch tasks")
	}
	if tasks == nil {
		tasks = []models.GenerationTask{}
	}
	return c.JSON(fiber.Map{"tasks": tasks})
}

// HandleCallback receives provider push notifications. It is unauthenticated;
// the provider task id is the only link to a task.
func (gc *GenerationController) HandleCallback(c *fiber.Ctx) error {
	state, err := kieai.ParseCallback(c.Body())
	if errors.Is(err, kieai.ErrMissingTaskID) {
		fiberlog.Warnf("[Generation] Callback without taskId: %s", truncate(string(c.Body()), 512))
		return jsonError(c, fiber.StatusBadRequest, "Missing taskId")
	}
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid callback payload")
	}

	if err := gc.svc.HandleCallback(c.UserContext(), state); err != nil {
		return writeServiceError(c, err, "Failed to process callback")
	}
	return c.JSON(fiber.Map{"success": true})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
