package repository

import (
	"github.com/ManuelReschke/PetsSanta/app/models"
	"gorm.io/gorm"
)

// generationTaskRepository implements the GenerationTaskRepository interface
type generationTaskRepository struct {
	db *gorm.DB
}

// NewGenerationTaskRepository creates a new generation task repository instance
func NewGenerationTaskRepository(db *gorm.DB) GenerationTaskRepository {
	return &generationTaskRepository{db: db}
}

// Create inserts a new generation task
func (r *generationTaskRepository) Create(task *models.GenerationTask) error {
	return r.db.Create(task).Error
}

// GetByID retrieves a task by its internal ID
func (r *generationTaskRepository) GetByID(id string) (*models.GenerationTask, error) {
	var task models.GenerationTask
	err := r.db.Where("id = ?", id).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetByIDAndUser retrieves a task only if it belongs to the given user
func (r *generationTaskRepository) GetByIDAndUser(id string, userID uint) (*models.GenerationTask, error) {
	var task models.GenerationTask
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetByProviderTaskID retrieves a task by the provider's correlation id
func (r *generationTaskRepository) GetByProviderTaskID(providerTaskID string) (*models.GenerationTask, error) {
	var task models.GenerationTask
	err := r.db.Where("provider_task_id = ?", providerTaskID).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByUser returns all tasks of a user, newest first
func (r *generationTaskRepository) ListByUser(userID uint) ([]models.GenerationTask, error) {
	var tasks []models.GenerationTask
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").Find(&tasks).Error
	return tasks, err
}

// SetProviderTaskID records the correlation id after a successful submission
func (r *generationTaskRepository) SetProviderTaskID(id string, providerTaskID string) error {
	return r.db.Model(&models.GenerationTask{}).
		Where("id = ?", id).
		Update("provider_task_id", providerTaskID).Error
}

// UpdateIfStatus applies updates only while the task is in one of the given
// statuses. It reports whether a row was changed.
func (r *generationTaskRepository) UpdateIfStatus(id string, statuses []string, updates map[string]interface{}) (bool, error) {
	tx := r.db.Model(&models.GenerationTask{}).
		Where("id = ? AND status IN ?", id, statuses).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// UpdateFailedAttempt applies updates only to a failed task whose retry count
// still equals retryCount.
func (r *generationTaskRepository) UpdateFailedAttempt(id string, retryCount int, updates map[string]interface{}) (bool, error) {
	tx := r.db.Model(&models.GenerationTask{}).
		Where("id = ? AND status = ? AND retry_count = ?", id, models.TaskStatusFailed, retryCount).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
