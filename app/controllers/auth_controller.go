package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PetsSanta/app/models"
	"github.com/ManuelReschke/PetsSanta/app/repository"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/ledger"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/session"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/usercontext"
)

// AuthController is the account and session surface.
type AuthController struct {
	users       repository.UserRepository
	ledger      *ledger.Service
	signupBonus int
}

// NewAuthController creates a new auth controller. signupBonus credits are
// granted through the ledger on account creation.
func NewAuthController(db *gorm.DB, signupBonus int) *AuthController {
	return &AuthController{
		users:       repository.NewUserRepository(db),
		ledger:      ledger.NewService(db),
		signupBonus: signupBonus,
	}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (ac *AuthController) HandleSignup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := ac.users.GetByEmail(email); err == nil {
		return jsonError(c, fiber.StatusConflict, "Email is already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return writeServiceError(c, err, "Signup failed")
	}

	user, err := models.CreateUser(strings.TrimSpace(req.Name), email, req.Password, 0)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return jsonError(c, fiber.StatusBadRequest, "Invalid field: "+strings.ToLower(verrs[0].Field()))
		}
		return writeServiceError(c, err, "Signup failed")
	}
	if err := ac.users.Create(user); err != nil {
		return writeServiceError(c, err, "Signup failed")
	}

	if ac.signupBonus > 0 {
		balance, err := ac.ledger.Credit(c.UserContext(), user.ID, ac.signupBonus, "Signup bonus")
		if err != nil {
			fiberlog.Errorf("[Auth] Granting signup bonus to user %d failed: %v", user.ID, err)
		} else {
			user.Credits = balance
		}
	}

	if err := startSession(c, user); err != nil {
		return writeServiceError(c, err, "Signup failed")
	}
	fiberlog.Infof("[Auth] User %d signed up", user.ID)
	return c.Status(fiber.StatusCreated).JSON(accountResponse(user))
}

func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	// notice: do not tell the client which part of the login was wrong
	user, err := ac.users.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			fiberlog.Errorf("[Auth] Login lookup failed: %v", err)
		}
		return jsonError(c, fiber.StatusUnauthorized, "Invalid email or password")
	}
	if !user.CheckPassword(req.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "Invalid email or password")
	}
	if !user.IsActive() {
		return jsonError(c, fiber.StatusForbidden, "Account is disabled")
	}

	if err := startSession(c, user); err != nil {
		return writeServiceError(c, err, "Login failed")
	}
	if err := ac.users.UpdateLastLogin(user.ID, time.Now()); err != nil {
		fiberlog.Warnf("[Auth] Failed to update last login for user %d: %v", user.ID, err)
	}
	return c.JSON(accountResponse(user))
}

func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	if err := session.Destroy(c); err != nil {
		fiberlog.Warnf("[Auth] Logout failed: %v", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// HandleMe returns the session user including the current balance.
func (ac *AuthController) HandleMe(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}
	user, err := ac.users.GetByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	if err != nil {
		return writeServiceError(c, err, "Failed to load user")
	}
	return c.JSON(accountResponse(user))
}

func startSession(c *fiber.Ctx, user *models.User) error {
	store := session.GetSessionStore()
	if store == nil {
		return errors.New("session store not initialized")
	}
	sess, err := store.Get(c)
	if err != nil {
		return err
	}
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyIsAdmin, user.Role == models.ROLE_ADMIN)
	return sess.Save()
}

func accountResponse(user *models.User) fiber.Map {
	return fiber.Map{
		"id":          user.ID,
		"name":        user.Name,
		"email":       user.Email,
		"credits":     user.Credits,
		"createdAt":   user.CreatedAt.UTC().Format(time.RFC3339),
		"lastLoginAt": formatTimePtr(user.LastLoginAt),
	}
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
