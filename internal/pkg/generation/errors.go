package generation

import "errors"

var (
	ErrValidation           = errors.New("validation failed")
	ErrTaskNotFound         = errors.New("task not found")
	ErrInvalidState         = errors.New("operation not allowed in current task status")
	ErrRetryLimitExceeded   = errors.New("maximum retry count reached")
	ErrProviderSubmitFailed = errors.New("failed to submit task to generation provider")
	ErrStorage              = errors.New("failed to persist generated image")
	ErrNotConfigured        = errors.New("generation provider is not configured")
)

// Messages stored on failed tasks.
const (
	msgSubmitFailed   = "Failed to create task with Kie.ai"
	msgNotRecorded    = "Failed to record Kie.ai task"
	msgNoImages       = "No generated images returned"
	msgDownloadFailed = "Failed to download generated image"
	msgStoreFailed    = "Failed to store generated image"
	msgTaskFailed     = "Task failed"
)
