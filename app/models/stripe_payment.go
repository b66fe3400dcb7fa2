package models

import "time"

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

// StripePayment records one credit pack purchase. StripePaymentID holds the
// checkout session id and is the correlation key for the webhook.
type StripePayment struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"userId"`
	StripePaymentID  string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"stripePaymentId"`
	StripeCustomerID string    `gorm:"type:varchar(191);default:''" json:"stripeCustomerId"`
	Amount           int64     `gorm:"not null" json:"amount"`
	Currency         string    `gorm:"type:varchar(10);not null" json:"currency"`
	Status           string    `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentMethod    string    `gorm:"type:varchar(50);default:''" json:"paymentMethod"`
	CreditsAdded     int       `gorm:"not null" json:"creditsAdded"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// IsCompleted reports whether the purchase has been credited.
func (p *StripePayment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}
