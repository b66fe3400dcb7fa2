package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Generation task statuses. Completed and failed are terminal; failed can only
// go back to waiting through an explicit retry.
const (
	TaskStatusWaiting    = "waiting"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// EmptyProviderResponse is stored while no provider payload is known.
var EmptyProviderResponse = datatypes.JSON("{}")

// ActiveTaskStatuses are the statuses a reconciliation may still move away from.
var ActiveTaskStatuses = []string{TaskStatusWaiting, TaskStatusProcessing}

// GenerationTask is one attempt to stylize a pet photo through the image
// generation provider. Inputs are immutable after creation.
type GenerationTask struct {
	ID                string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID            uint           `gorm:"not null;index" json:"userId"`
	ProviderTaskID    *string        `gorm:"type:varchar(191);uniqueIndex" json:"providerTaskId"`
	OriginalImageURL  string         `gorm:"type:text;not null" json:"originalImageUrl"`
	GeneratedImageURL *string        `gorm:"type:text" json:"generatedImageUrl"`
	Prompt            string         `gorm:"type:text;not null" json:"prompt"`
	Style             string         `gorm:"type:varchar(100);not null" json:"style"`
	AspectRatio       string         `gorm:"type:varchar(20);not null;default:'1:1'" json:"aspectRatio"`
	Resolution        string         `gorm:"type:varchar(20);not null;default:'1K'" json:"resolution"`
	OutputFormat      string         `gorm:"type:varchar(20);not null;default:'png'" json:"outputFormat"`
	Status            string         `gorm:"type:varchar(20);not null;default:'waiting';index" json:"status"`
	CreditsUsed       int            `gorm:"not null;default:20" json:"creditsUsed"`
	ErrorMessage      *string        `gorm:"type:text" json:"errorMessage"`
	ProviderResponse  datatypes.JSON `gorm:"not null" json:"providerResponse"`
	RetryCount        int            `gorm:"not null;default:0" json:"retryCount"`
	CreatedAt         time.Time      `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	CompletedAt       *time.Time     `gorm:"type:timestamp;default:null" json:"completedAt"`
}

// IsTerminal reports whether the task reached completed or failed.
func (t *GenerationTask) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// IsSubmitted reports whether the provider has assigned a correlation id.
func (t *GenerationTask) IsSubmitted() bool {
	return t.ProviderTaskID != nil && *t.ProviderTaskID != ""
}

// CorrelationID returns the provider task id or an empty string.
func (t *GenerationTask) CorrelationID() string {
	if t.ProviderTaskID == nil {
		return ""
	}
	return *t.ProviderTaskID
}

// BeforeCreate fills in the empty provider payload.
func (t *GenerationTask) BeforeCreate(tx *gorm.DB) error {
	if len(t.ProviderResponse) == 0 {
		t.ProviderResponse = EmptyProviderResponse
	}
	return nil
}
