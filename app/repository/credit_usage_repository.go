package repository

import (
	"github.com/ManuelReschke/PetsSanta/app/models"
	"gorm.io/gorm"
)

type creditUsageRepository struct {
	db *gorm.DB
}

// NewCreditUsageRepository creates a new ledger entry repository instance
func NewCreditUsageRepository(db *gorm.DB) CreditUsageRepository {
	return &creditUsageRepository{db: db}
}

// Create appends a ledger entry
func (r *creditUsageRepository) Create(entry *models.CreditUsage) error {
	return r.db.Create(entry).Error
}

// ListByUser returns the ledger entries of a user, newest first
func (r *creditUsageRepository) ListByUser(userID uint) ([]models.CreditUsage, error) {
	var entries []models.CreditUsage
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").Find(&entries).Error
	return entries, err
}
