package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/PetsSanta/app/models"
	"github.com/ManuelReschke/PetsSanta/app/repository"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/artifact"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/kieai"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/ledger"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Provider is the image generation backend.
type Provider interface {
	Submit(ctx context.Context, in kieai.SubmitRequest) (string, error)
	Poll(ctx context.Context, correlationID string) (*kieai.TaskState, error)
}

// Fetcher downloads a provider result.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// CreateInput is a request to stylize one photo.
type CreateInput struct {
	UserID      uint   `validate:"required"`
	ImageURL    string `validate:"required,url"`
	Style       string `validate:"required,max=100"`
	Prompt      string `validate:"required,max=4000"`
	AspectRatio string `validate:"omitempty,oneof=1:1 2:3 3:2 3:4 4:3 4:5 5:4 9:16 16:9 21:9 auto"`
	Resolution  string `validate:"omitempty,oneof=1K 2K 4K"`
}

// TaskHandle is what Create hands back to the caller.
type TaskHandle struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	CreditsRemaining int    `json:"creditsRemaining"`
}

// RetryHandle is what Retry hands back to the caller.
type RetryHandle struct {
	ID         string `json:"taskId"`
	Status     string `json:"status"`
	RetryCount int    `json:"retryCount"`
}

// Service drives generation tasks through their lifecycle.
type Service struct {
	db       *gorm.DB
	ledger   *ledger.Service
	provider Provider
	store    artifact.Store
	fetcher  Fetcher
	cfg      Config
	validate *validator.Validate
	now      func() time.Time
}

// NewService wires the orchestrator. A nil provider leaves the service up for
// reads, while Create and Retry fail with ErrNotConfigured.
func NewService(db *gorm.DB, provider Provider, store artifact.Store, fetcher Fetcher, cfg Config) *Service {
	if cfg.CreditsCost <= 0 {
		cfg.CreditsCost = DefaultCreditsCost
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	return &Service{
		db:       db,
		ledger:   ledger.NewService(db),
		provider: provider,
		store:    store,
		fetcher:  fetcher,
		cfg:      cfg,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Create charges the user, records the task and submits it to the provider.
// A failed submission still returns the handle, together with
// ErrProviderSubmitFailed; the charge stands and the task is marked failed.
func (s *Service) Create(ctx context.Context, in CreateInput) (*TaskHandle, error) {
	if s.provider == nil {
		return nil, ErrNotConfigured
	}
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.Style = strings.TrimSpace(in.Style)
	in.Prompt = strings.TrimSpace(in.Prompt)
	in.AspectRatio = strings.TrimSpace(in.AspectRatio)
	in.Resolution = strings.TrimSpace(in.Resolution)
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, describeValidation(err))
	}
	if in.AspectRatio == "" {
		in.AspectRatio = DefaultAspectRatio
	}
	if in.Resolution == "" {
		in.Resolution = DefaultResolution
	}

	if _, err := s.ledger.EnsureBalance(ctx, in.UserID, s.cfg.CreditsCost); err != nil {
		return nil, err
	}

	task := &models.GenerationTask{
		ID:               uuid.NewString(),
		UserID:           in.UserID,
		OriginalImageURL: in.ImageURL,
		Prompt:           in.Prompt,
		Style:            in.Style,
		AspectRatio:      in.AspectRatio,
		Resolution:       in.Resolution,
		OutputFormat:     DefaultOutputFormat,
		Status:           models.TaskStatusWaiting,
		CreditsUsed:      s.cfg.CreditsCost,
	}

	var remaining int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		remaining, err = ledger.DebitTx(tx, in.UserID, s.cfg.CreditsCost, "Image generation: "+in.Style)
		if err != nil {
			return err
		}
		return repository.NewGenerationTaskRepository(tx).Create(task)
	})
	if err != nil {
		return nil, err
	}
	ledger.CountDebit(s.cfg.CreditsCost)
	metrics.GenerationTasks.WithLabelValues(metrics.OutcomeCreated).Inc()

	handle := &TaskHandle{ID: task.ID, Status: models.TaskStatusWaiting, CreditsRemaining: remaining}
	repo := repository.NewGenerationTaskRepository(s.db.WithContext(ctx))

	correlationID, submitErr := s.provider.Submit(ctx, s.submitRequest(task))
	if submitErr != nil {
		log.Errorf("[Generation] Submit failed for task %s: %v", task.ID, submitErr)
		updates := map[string]interface{}{
			"status":            models.TaskStatusFailed,
			"error_message":     msgSubmitFailed,
			"provider_response": errorPayload(submitErr),
		}
		if _, err := repo.UpdateIfStatus(task.ID, []string{models.TaskStatusWaiting}, updates); err != nil {
			return nil, fmt.Errorf("mark task %s failed: %w", task.ID, err)
		}
		metrics.GenerationTasks.WithLabelValues(metrics.OutcomeSubmitFailed).Inc()
		handle.Status = models.TaskStatusFailed
		return handle, fmt.Errorf("%w: %v", ErrProviderSubmitFailed, submitErr)
	}

	if err := repo.SetProviderTaskID(task.ID, correlationID); err != nil {
		log.Errorf("[Generation] Storing provider task %s for task %s failed, provider job is orphaned: %v", correlationID, task.ID, err)
		updates := map[string]interface{}{
			"status":            models.TaskStatusFailed,
			"error_message":     msgNotRecorded,
			"provider_response": errorPayload(err),
		}
		if _, uerr := repo.UpdateIfStatus(task.ID, []string{models.TaskStatusWaiting}, updates); uerr != nil {
			return nil, fmt.Errorf("mark task %s failed: %w", task.ID, uerr)
		}
		metrics.GenerationTasks.WithLabelValues(metrics.OutcomeSubmitFailed).Inc()
		handle.Status = models.TaskStatusFailed
		return handle, fmt.Errorf("%w: store provider task id %s: %v", ErrProviderSubmitFailed, correlationID, err)
	}
	log.Infof("[Generation] Task %s submitted as %s", task.ID, correlationID)
	return handle, nil
}

// HandleCallback applies a provider push notification. Callbacks for tasks
// that already reached a terminal status are ignored.
func (s *Service) HandleCallback(ctx context.Context, state *kieai.TaskState) error {
	if state == nil || strings.TrimSpace(state.TaskID) == "" {
		return kieai.ErrMissingTaskID
	}

	task, err := repository.NewGenerationTaskRepository(s.db.WithContext(ctx)).GetByProviderTaskID(state.TaskID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[Generation] Callback for unknown provider task %s", state.TaskID)
		return ErrTaskNotFound
	}
	if err != nil {
		return err
	}
	if task.IsTerminal() {
		log.Infof("[Generation] Ignoring callback for %s task %s", task.Status, task.ID)
		return nil
	}

	_, err = s.reconcile(ctx, task, state)
	return err
}

// PollStatus returns the task of userID, refreshing it from the provider while
// it is still in flight. Provider errors are logged and reported as processing.
func (s *Service) PollStatus(ctx context.Context, userID uint, taskID string) (*models.GenerationTask, error) {
	task, err := s.ownedTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.IsTerminal() {
		return task, nil
	}
	if !task.IsSubmitted() {
		task.Status = models.TaskStatusWaiting
		return task, nil
	}
	if s.provider == nil {
		return task, nil
	}

	state, err := s.provider.Poll(ctx, task.CorrelationID())
	if err != nil {
		log.Warnf("[Generation] Poll failed for task %s (%s): %v", task.ID, task.CorrelationID(), err)
		task.Status = models.TaskStatusProcessing
		return task, nil
	}
	return s.reconcile(ctx, task, state)
}

// Retry resubmits a failed task under a new provider correlation id. No
// credits are charged.
func (s *Service) Retry(ctx context.Context, userID uint, taskID string) (*RetryHandle, error) {
	if s.provider == nil {
		return nil, ErrNotConfigured
	}
	task, err := s.ownedTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusFailed {
		return nil, fmt.Errorf("%w: only failed tasks can be retried", ErrInvalidState)
	}
	if task.RetryCount >= s.cfg.MaxRetries {
		metrics.GenerationRetries.WithLabelValues("limit").Inc()
		return nil, fmt.Errorf("%w (%d)", ErrRetryLimitExceeded, s.cfg.MaxRetries)
	}

	repo := repository.NewGenerationTaskRepository(s.db.WithContext(ctx))

	correlationID, submitErr := s.provider.Submit(ctx, s.submitRequest(task))
	if submitErr != nil {
		log.Errorf("[Generation] Retry submit failed for task %s: %v", task.ID, submitErr)
		metrics.GenerationRetries.WithLabelValues("submit_failed").Inc()
		if s.cfg.RetryConsumesOnFailure {
			updates := map[string]interface{}{
				"retry_count":       task.RetryCount + 1,
				"provider_response": errorPayload(submitErr),
			}
			if _, err := repo.UpdateFailedAttempt(task.ID, task.RetryCount, updates); err != nil {
				log.Errorf("[Generation] Failed to count retry attempt for task %s: %v", task.ID, err)
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderSubmitFailed, submitErr)
	}

	updates := map[string]interface{}{
		"provider_task_id":  correlationID,
		"status":            models.TaskStatusWaiting,
		"error_message":     nil,
		"provider_response": models.EmptyProviderResponse,
		"retry_count":       task.RetryCount + 1,
	}
	ok, err := repo.UpdateFailedAttempt(task.ID, task.RetryCount, updates)
	if err != nil {
		return nil, fmt.Errorf("store retry of task %s: %w", task.ID, err)
	}
	if !ok {
		// A concurrent retry won; the job just submitted is orphaned.
		log.Warnf("[Generation] Concurrent retry for task %s, dropping provider task %s", task.ID, correlationID)
		return nil, fmt.Errorf("%w: task was retried concurrently", ErrInvalidState)
	}

	metrics.GenerationRetries.WithLabelValues("submitted").Inc()
	log.Infof("[Generation] Task %s retried as %s (attempt %d)", task.ID, correlationID, task.RetryCount+1)
	return &RetryHandle{ID: task.ID, Status: models.TaskStatusWaiting, RetryCount: task.RetryCount + 1}, nil
}

// ListTasks returns the tasks of a user, newest first.
func (s *Service) ListTasks(ctx context.Context, userID uint) ([]models.GenerationTask, error) {
	return repository.NewGenerationTaskRepository(s.db.WithContext(ctx)).ListByUser(userID)
}

func (s *Service) ownedTask(ctx context.Context, userID uint, taskID string) (*models.GenerationTask, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, fmt.Errorf("%w: task id is required", ErrValidation)
	}
	task, err := repository.NewGenerationTaskRepository(s.db.WithContext(ctx)).GetByIDAndUser(taskID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	return task, err
}

func (s *Service) submitRequest(task *models.GenerationTask) kieai.SubmitRequest {
	return kieai.SubmitRequest{
		Prompt:       task.Prompt,
		ImageURLs:    []string{task.OriginalImageURL},
		AspectRatio:  task.AspectRatio,
		Resolution:   task.Resolution,
		OutputFormat: task.OutputFormat,
		CallbackURL:  s.cfg.CallbackURL,
	}
}

// reconcile moves an in-flight task according to a provider snapshot. The
// write only applies while the task is still waiting or processing, so a
// callback and a poll racing each other finalize the task once.
func (s *Service) reconcile(ctx context.Context, task *models.GenerationTask, state *kieai.TaskState) (*models.GenerationTask, error) {
	updates := map[string]interface{}{
		"provider_response": providerPayload(state.Raw),
	}
	outcome := ""

	switch o := state.Outcome.(type) {
	case kieai.Success:
		if len(o.ResultURLs) == 0 {
			updates["status"] = models.TaskStatusFailed
			updates["error_message"] = msgNoImages
			outcome = metrics.OutcomeFailed
			break
		}
		url, err := s.persistResult(ctx, task, o.ResultURLs[0])
		if err != nil {
			updates["status"] = models.TaskStatusFailed
			if errors.Is(err, ErrStorage) {
				updates["error_message"] = msgStoreFailed
			} else {
				updates["error_message"] = msgDownloadFailed
			}
			outcome = metrics.OutcomeFailed
			break
		}
		updates["status"] = models.TaskStatusCompleted
		updates["generated_image_url"] = url
		updates["completed_at"] = s.now()
		outcome = metrics.OutcomeCompleted
	case kieai.Failure:
		reason := o.Reason
		if reason == "" {
			reason = msgTaskFailed
		}
		updates["status"] = models.TaskStatusFailed
		updates["error_message"] = reason
		outcome = metrics.OutcomeFailed
	default:
		updates["status"] = models.TaskStatusProcessing
	}

	repo := repository.NewGenerationTaskRepository(s.db.WithContext(ctx))
	changed, err := repo.UpdateIfStatus(task.ID, models.ActiveTaskStatuses, updates)
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", task.ID, err)
	}
	if changed && outcome != "" {
		metrics.GenerationTasks.WithLabelValues(outcome).Inc()
		log.Infof("[Generation] Task %s is now %v", task.ID, updates["status"])
	}
	return repo.GetByID(task.ID)
}

func (s *Service) persistResult(ctx context.Context, task *models.GenerationTask, resultURL string) (string, error) {
	data, _, err := s.fetcher.Fetch(ctx, resultURL)
	if err != nil {
		log.Errorf("[Generation] Download of result for task %s failed: %v", task.ID, err)
		return "", err
	}

	key := artifact.GeneratedImageKey(task.UserID, task.CorrelationID())
	url, err := s.store.Put(ctx, key, data, "image/png")
	if err != nil {
		log.Errorf("[Generation] Storing result for task %s failed: %v", task.ID, err)
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return url, nil
}

func providerPayload(raw []byte) datatypes.JSON {
	if len(raw) == 0 {
		return models.EmptyProviderResponse
	}
	if !json.Valid(raw) {
		wrapped, _ := json.Marshal(map[string]string{"raw": string(raw)})
		return datatypes.JSON(wrapped)
	}
	return datatypes.JSON(raw)
}

func errorPayload(err error) datatypes.JSON {
	raw, _ := json.Marshal(map[string]string{"error": err.Error()})
	return datatypes.JSON(raw)
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" ("+fe.Tag()+")")
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}
