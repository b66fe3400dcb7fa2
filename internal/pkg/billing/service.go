package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ManuelReschke/PetsSanta/app/models"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/ledger"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/metrics"
	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"
)

// Service sells credit packs through the payment processor and credits them
// once the processor confirms the purchase.
type Service struct {
	db        *gorm.DB
	processor Processor
	cfg       Config
}

// NewService creates a billing service.
func NewService(db *gorm.DB, processor Processor, cfg Config) *Service {
	if cfg.CreditsPerPack <= 0 {
		cfg.CreditsPerPack = DefaultCreditsPerPack
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	return &Service{
		db:        db,
		processor: processor,
		cfg:       cfg,
	}
}

// CreateCheckout starts a hosted checkout for one credit pack and records the
// pending purchase. Nothing is recorded when the processor refuses.
func (s *Service) CreateCheckout(ctx context.Context, user *models.User) (*CheckoutSession, error) {
	if user == nil || user.ID == 0 {
		return nil, errors.New("user is required")
	}
	if s.processor == nil || s.cfg.PriceID == "" {
		return nil, ErrNotConfigured
	}
	repo := NewRepository(s.db.WithContext(ctx))

	customerID := ""
	latest, err := repo.LatestPaymentByUser(user.ID)
	switch {
	case err == nil:
		customerID = latest.StripeCustomerID
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	if customerID == "" {
		customerID, err = s.processor.CreateCustomer(ctx, CustomerRequest{
			UserID: user.ID,
			Email:  user.Email,
			Name:   user.Name,
		})
		if err != nil {
			log.Errorf("[Billing] Creating customer for user %d failed: %v", user.ID, err)
			return nil, fmt.Errorf("%w: %v", ErrProcessor, err)
		}
	}

	session, err := s.processor.CreateCheckoutSession(ctx, CheckoutRequest{
		CustomerID: customerID,
		PriceID:    s.cfg.PriceID,
		UserID:     user.ID,
		Credits:    s.cfg.CreditsPerPack,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
	})
	if err != nil {
		log.Errorf("[Billing] Creating checkout session for user %d failed: %v", user.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrProcessor, err)
	}

	payment := &models.StripePayment{
		UserID:           user.ID,
		StripePaymentID:  session.ID,
		StripeCustomerID: customerID,
		Amount:           s.cfg.PackAmount,
		Currency:         s.cfg.Currency,
		Status:           models.PaymentStatusPending,
		PaymentMethod:    "card",
		CreditsAdded:     s.cfg.CreditsPerPack,
	}
	if err := repo.CreatePayment(payment); err != nil {
		return nil, fmt.Errorf("record pending payment: %w", err)
	}

	log.Infof("[Billing] Checkout session %s created for user %d", session.ID, user.ID)
	return session, nil
}

// HandleWebhook verifies and applies a processor notification. Verification
// happens before anything is parsed or written. Redelivered events that were
// already processed are acknowledged without effect.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := VerifyStripeWebhookSignature(payload, signatureHeader, s.cfg.WebhookSecret)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "invalid_signature").Inc()
		log.Warnf("[Billing] Rejected webhook with invalid signature")
		return err
	}
	eventType := string(event.Type)

	created, stored, err := s.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       eventType,
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	})
	if err != nil {
		return err
	}
	if !created && stored.IsProcessed() {
		metrics.WebhookEvents.WithLabelValues(eventType, "duplicate").Inc()
		log.Infof("[Billing] Webhook event %s already processed", stored.ProviderEventID)
		return nil
	}

	processErr := s.processEvent(ctx, event)
	if err := s.MarkWebhookProcessed(ctx, stored.ID, processErr); err != nil {
		log.Errorf("[Billing] Failed to mark webhook event %s processed: %v", stored.ProviderEventID, err)
	}
	if processErr != nil {
		metrics.WebhookEvents.WithLabelValues(eventType, "error").Inc()
		log.Errorf("[Billing] Webhook event %s failed: %v", stored.ProviderEventID, processErr)
		return processErr
	}
	metrics.WebhookEvents.WithLabelValues(eventType, "processed").Inc()
	return nil
}

func (s *Service) processEvent(ctx context.Context, event *stripe.Event) error {
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		log.Debugf("[Billing] Ignoring webhook event type %s", event.Type)
		return nil
	}
	if event.Data == nil {
		return ErrMissingMetadata
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("decode checkout session: %w", err)
	}

	userID, credits, err := purchaseMetadata(session.Metadata)
	if err != nil {
		return err
	}
	return s.ConfirmPurchase(ctx, &session, userID, credits)
}

// ConfirmPurchase completes the purchase identified by the checkout session
// and credits the user exactly once, in one transaction.
func (s *Service) ConfirmPurchase(ctx context.Context, session *stripe.CheckoutSession, userID uint, credits int) error {
	credited := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewRepository(tx)

		completed, err := repo.CompletePendingPayment(session.ID)
		if err != nil {
			return err
		}
		if !completed {
			_, err := repo.GetPaymentBySessionID(session.ID)
			if err == nil {
				log.Infof("[Billing] Purchase %s already completed", session.ID)
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			// Confirmation for a checkout we never recorded
			payment := &models.StripePayment{
				UserID:          userID,
				StripePaymentID: session.ID,
				Amount:          session.AmountTotal,
				Currency:        strings.ToLower(string(session.Currency)),
				Status:          models.PaymentStatusCompleted,
				PaymentMethod:   "card",
				CreditsAdded:    credits,
			}
			if session.Customer != nil {
				payment.StripeCustomerID = session.Customer.ID
			}
			if payment.Currency == "" {
				payment.Currency = s.cfg.Currency
			}
			if err := repo.CreatePayment(payment); err != nil {
				return fmt.Errorf("record completed payment: %w", err)
			}
		}

		balance, err := ledger.CreditTx(tx, userID, credits, fmt.Sprintf("Purchase: %d credits", credits))
		if err != nil {
			return err
		}
		log.Infof("[Billing] Purchase %s credited %d credits to user %d (balance %d)", session.ID, credits, userID, balance)
		credited = true
		return nil
	})
	if err != nil {
		return err
	}
	if credited {
		ledger.CountCredit(credits)
	}
	return nil
}

// Overview returns the balance, purchases and ledger history of a user.
func (s *Service) Overview(ctx context.Context, userID uint) (*Overview, error) {
	db := s.db.WithContext(ctx)
	ledgerSvc := ledger.NewService(db)

	credits, err := ledgerSvc.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	payments, err := NewRepository(db).ListPaymentsByUser(userID)
	if err != nil {
		return nil, err
	}
	usage, err := ledgerSvc.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []models.StripePayment{}
	}
	if usage == nil {
		usage = []models.CreditUsage{}
	}
	return &Overview{Credits: credits, Payments: payments, UsageHistory: usage}, nil
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return NewRepository(s.db.WithContext(ctx)).CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return NewRepository(s.db.WithContext(ctx)).MarkWebhookProcessed(webhookEventID, errMsg)
}

func purchaseMetadata(metadata map[string]string) (uint, int, error) {
	rawUser := strings.TrimSpace(metadata["userId"])
	rawCredits := strings.TrimSpace(metadata["creditsAmount"])
	if rawUser == "" || rawCredits == "" {
		return 0, 0, ErrMissingMetadata
	}
	userID, err := strconv.ParseUint(rawUser, 10, 64)
	if err != nil || userID == 0 {
		return 0, 0, ErrMissingMetadata
	}
	credits, err := strconv.Atoi(rawCredits)
	if err != nil || credits <= 0 {
		return 0, 0, ErrMissingMetadata
	}
	return uint(userID), credits, nil
}
