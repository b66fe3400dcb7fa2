package models

import "time"

// CreditUsage is an append-only ledger entry. RemainingCredits is the user's
// balance right after the entry was applied.
type CreditUsage struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"userId"`
	CreditsUsed      int       `gorm:"not null;default:0" json:"creditsUsed"`
	CreditsAdded     int       `gorm:"not null;default:0" json:"creditsAdded"`
	RemainingCredits int       `gorm:"not null" json:"remainingCredits"`
	Description      string    `gorm:"type:text;not null" json:"description"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}
