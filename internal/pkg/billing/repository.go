package billing

import (
	"time"

	"github.com/ManuelReschke/PetsSanta/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	CreatePayment(payment *models.StripePayment) error
	GetPaymentBySessionID(sessionID string) (*models.StripePayment, error)
	LatestPaymentByUser(userID uint) (*models.StripePayment, error)
	ListPaymentsByUser(userID uint) ([]models.StripePayment, error)
	CompletePendingPayment(sessionID string) (bool, error)
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreatePayment(payment *models.StripePayment) error {
	return r.db.Create(payment).Error
}

func (r *gormRepository) GetPaymentBySessionID(sessionID string) (*models.StripePayment, error) {
	var p models.StripePayment
	err := r.db.Where("stripe_payment_id = ?", sessionID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) LatestPaymentByUser(userID uint) (*models.StripePayment, error) {
	var p models.StripePayment
	err := r.db.Where("user_id = ? AND stripe_customer_id <> ''", userID).
		Order("created_at DESC").Order("id DESC").First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) ListPaymentsByUser(userID uint) ([]models.StripePayment, error) {
	var payments []models.StripePayment
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").Find(&payments).Error
	return payments, err
}

// CompletePendingPayment flips a pending purchase to completed. It reports
// false when no pending row matched.
func (r *gormRepository) CompletePendingPayment(sessionID string) (bool, error) {
	tx := r.db.Model(&models.StripePayment{}).
		Where("stripe_payment_id = ? AND status = ?", sessionID, models.PaymentStatusPending).
		Update("status", models.PaymentStatusCompleted)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
