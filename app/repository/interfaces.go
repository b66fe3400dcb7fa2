package repository

import (
	"time"

	"github.com/ManuelReschke/PetsSanta/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetCredits(id uint) (int, error)
	DebitCredits(id uint, amount int) (bool, error)
	AddCredits(id uint, amount int) error
	UpdateLastLogin(id uint, at time.Time) error
}

// GenerationTaskRepository defines the interface for generation task operations
type GenerationTaskRepository interface {
	Create(task *models.GenerationTask) error
	GetByID(id string) (*models.GenerationTask, error)
	GetByIDAndUser(id string, userID uint) (*models.GenerationTask, error)
	GetByProviderTaskID(providerTaskID string) (*models.GenerationTask, error)
	ListByUser(userID uint) ([]models.GenerationTask, error)
	SetProviderTaskID(id string, providerTaskID string) error
	UpdateIfStatus(id string, statuses []string, updates map[string]interface{}) (bool, error)
	UpdateFailedAttempt(id string, retryCount int, updates map[string]interface{}) (bool, error)
}

// CreditUsageRepository defines the interface for ledger entry operations
type CreditUsageRepository interface {
	Create(entry *models.CreditUsage) error
	ListByUser(userID uint) ([]models.CreditUsage, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User           UserRepository
	GenerationTask GenerationTaskRepository
	CreditUsage    CreditUsageRepository
}

// NewRepositories creates a new instance of all repositories. Pass a
// transaction handle to get repositories bound to that transaction.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:           NewUserRepository(db),
		GenerationTask: NewGenerationTaskRepository(db),
		CreditUsage:    NewCreditUsageRepository(db),
	}
}
