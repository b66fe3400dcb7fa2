package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ManuelReschke/PetsSanta/app/models"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/dbtest"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/ledger"
	"github.com/ManuelReschke/PetsSanta/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test_secret"

type fakeProcessor struct {
	customers   int
	sessions    int
	lastRequest CheckoutRequest
	customerErr error
	sessionErr  error
}

func (f *fakeProcessor) CreateCustomer(_ context.Context, in CustomerRequest) (string, error) {
	if f.customerErr != nil {
		return "", f.customerErr
	}
	f.customers++
	return fmt.Sprintf("cus_%d", f.customers), nil
}

func (f *fakeProcessor) CreateCheckoutSession(_ context.Context, in CheckoutRequest) (*CheckoutSession, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	f.sessions++
	f.lastRequest = in
	id := fmt.Sprintf("cs_test_%d", f.sessions)
	return &CheckoutSession{ID: id, URL: "https://checkout.stripe.com/pay/" + id}, nil
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *fakeProcessor) {
	t.Helper()
	db := dbtest.Open(t)
	proc := &fakeProcessor{}
	svc := NewService(db, proc, Config{
		WebhookSecret:  testWebhookSecret,
		PriceID:        "price_pack",
		CreditsPerPack: 200,
		PackAmount:     1000,
		Currency:       "usd",
		SuccessURL:     "http://localhost:4000/billing?success=true",
		CancelURL:      "http://localhost:4000/pricing?canceled=true",
	})
	return svc, db, proc
}

func signPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func checkoutCompletedEvent(eventID, sessionID string, userID uint, credits string) []byte {
	return []byte(fmt.Sprintf(`{
  "id": %q,
  "object": "event",
  "type": "checkout.session.completed",
  "created": 1700000000,
  "data": {
    "object": {
      "id": %q,
      "object": "checkout.session",
      "amount_total": 1000,
      "currency": "usd",
      "customer": "cus_webhook",
      "metadata": {"userId": "%d", "creditsAmount": %q}
    }
  }
}`, eventID, sessionID, userID, credits))
}

func TestCreateCheckout_RecordsPendingPayment(t *testing.T) {
	svc, db, proc := newTestService(t)
	user := dbtest.CreateUser(t, db, "buyer@example.com", 0)

	session, err := svc.CreateCheckout(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)
	assert.Contains(t, session.URL, "cs_test_1")

	assert.Equal(t, 1, proc.customers)
	assert.Equal(t, "cus_1", proc.lastRequest.CustomerID)
	assert.Equal(t, "price_pack", proc.lastRequest.PriceID)
	assert.Equal(t, 200, proc.lastRequest.Credits)
	assert.Equal(t, user.ID, proc.lastRequest.UserID)

	payment, err := NewRepository(db).GetPaymentBySessionID("cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, int64(1000), payment.Amount)
	assert.Equal(t, "usd", payment.Currency)
	assert.Equal(t, 200, payment.CreditsAdded)
	assert.Equal(t, "cus_1", payment.StripeCustomerID)
}

func TestCreateCheckout_ReusesCustomer(t *testing.T) {
	svc, db, proc := newTestService(t)
	user := dbtest.CreateUser(t, db, "repeat@example.com", 0)

	_, err := svc.CreateCheckout(context.Background(), user)
	require.NoError(t, err)
	_, err = svc.CreateCheckout(context.Background(), user)
	require.NoError(t, err)

	if proc.customers != 1 {
		t.Fatalf("expected one customer to be created, got %d", proc.customers)
	}
	if proc.lastRequest.CustomerID != "cus_1" {
		t.Fatalf("expected customer cus_1 to be reused, got %q", proc.lastRequest.CustomerID)
	}
}

func TestCreateCheckout_ProcessorErrorRecordsNothing(t *testing.T) {
	svc, db, proc := newTestService(t)
	user := dbtest.CreateUser(t, db, "declined@example.com", 0)
	proc.sessionErr = errors.New("stripe unavailable")

	_, err := svc.CreateCheckout(context.Background(), user)
	require.ErrorIs(t, err, ErrProcessor)

	payments, err := NewRepository(db).ListPaymentsByUser(user.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestCreateCheckout_NotConfigured(t *testing.T) {
	svc, db, _ := newTestService(t)
	svc.cfg.PriceID = ""
	user := dbtest.CreateUser(t, db, "noprice@example.com", 0)

	_, err := svc.CreateCheckout(context.Background(), user)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := dbtest.CreateUser(t, db, "forged@example.com", 0)
	payload := checkoutCompletedEvent("evt_forged", "cs_forged", user.ID, "200")

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong secret", header: signPayload(payload, "whsec_other")},
		{name: "garbage", header: "t=1,v1=deadbeef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.HandleWebhook(context.Background(), payload, tt.header)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}

	var events int64
	require.NoError(t, db.Model(&models.BillingWebhookEvent{}).Count(&events).Error)
	assert.Zero(t, events)

	balance, err := ledger.NewService(db).Balance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestHandleWebhook_CompletesPurchaseOnce(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := dbtest.CreateUser(t, db, "paid@example.com", 20)
	credited := metrics.Credits.WithLabelValues("credit")
	creditedBefore := testutil.ToFloat64(credited)

	session, err := svc.CreateCheckout(context.Background(), user)
	require.NoError(t, err)

	payload := checkoutCompletedEvent("evt_1", session.ID, user.ID, "200")
	require.NoError(t, svc.HandleWebhook(context.Background(), payload, signPayload(payload, testWebhookSecret)))

	payment, err := NewRepository(db).GetPaymentBySessionID(session.ID)
	require.NoError(t, err)
	assert.True(t, payment.IsCompleted())

	overview, err := svc.Overview(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 220, overview.Credits)
	require.Len(t, overview.UsageHistory, 1)
	assert.Equal(t, 200, overview.UsageHistory[0].CreditsAdded)
	assert.Equal(t, 220, overview.UsageHistory[0].RemainingCredits)
	assert.Equal(t, "Purchase: 200 credits", overview.UsageHistory[0].Description)
	require.Len(t, overview.Payments, 1)

	// Redelivery of the same event
	require.NoError(t, svc.HandleWebhook(context.Background(), payload, signPayload(payload, testWebhookSecret)))

	// Same session under a new event id
	other := checkoutCompletedEvent("evt_2", session.ID, user.ID, "200")
	require.NoError(t, svc.HandleWebhook(context.Background(), other, signPayload(other, testWebhookSecret)))

	overview, err = svc.Overview(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 220, overview.Credits)
	assert.Len(t, overview.UsageHistory, 1)
	assert.Equal(t, creditedBefore+200, testutil.ToFloat64(credited))

	var stored models.BillingWebhookEvent
	require.NoError(t, db.Where("provider_event_id = ?", "evt_1").First(&stored).Error)
	assert.True(t, stored.IsProcessed())
	assert.True(t, stored.SignatureValid)
}

func TestHandleWebhook_UnknownSessionIsRecordedAsCompleted(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := dbtest.CreateUser(t, db, "walkin@example.com", 0)

	payload := checkoutCompletedEvent("evt_walkin", "cs_unknown", user.ID, "200")
	require.NoError(t, svc.HandleWebhook(context.Background(), payload, signPayload(payload, testWebhookSecret)))

	payment, err := NewRepository(db).GetPaymentBySessionID("cs_unknown")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, int64(1000), payment.Amount)
	assert.Equal(t, "usd", payment.Currency)
	assert.Equal(t, "cus_webhook", payment.StripeCustomerID)
	assert.Equal(t, 200, payment.CreditsAdded)

	balance, err := ledger.NewService(db).Balance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 200, balance)
}

func TestHandleWebhook_MissingMetadata(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := dbtest.CreateUser(t, db, "meta@example.com", 0)

	for i, credits := range []string{"", "zero", "-5"} {
		eventID := fmt.Sprintf("evt_meta_%d", i)
		payload := checkoutCompletedEvent(eventID, "cs_meta", user.ID, credits)
		err := svc.HandleWebhook(context.Background(), payload, signPayload(payload, testWebhookSecret))
		if !errors.Is(err, ErrMissingMetadata) {
			t.Fatalf("creditsAmount %q: expected ErrMissingMetadata, got %v", credits, err)
		}

		var stored models.BillingWebhookEvent
		require.NoError(t, db.Where("provider_event_id = ?", eventID).First(&stored).Error)
		assert.False(t, stored.IsProcessed())
		assert.NotEmpty(t, stored.ProcessingError)
	}

	balance, err := ledger.NewService(db).Balance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestHandleWebhook_IgnoresOtherEventTypes(t *testing.T) {
	svc, db, _ := newTestService(t)
	payload := []byte(`{"id":"evt_other","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)

	require.NoError(t, svc.HandleWebhook(context.Background(), payload, signPayload(payload, testWebhookSecret)))

	var stored models.BillingWebhookEvent
	require.NoError(t, db.Where("provider_event_id = ?", "evt_other").First(&stored).Error)
	assert.Equal(t, "customer.created", stored.EventType)
	assert.True(t, stored.IsProcessed())
}

func TestRecordWebhookEvent_HashFallback(t *testing.T) {
	svc, _, _ := newTestService(t)

	created, first, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:    "Stripe",
		EventType:   "checkout.session.completed",
		PayloadJSON: `{"a":1}`,
	})
	require.NoError(t, err)
	if !created {
		t.Fatalf("expected first event to be created")
	}
	if first.Provider != models.BillingProviderStripe {
		t.Fatalf("expected provider to be normalized, got %q", first.Provider)
	}

	created, second, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:    "stripe",
		EventType:   "checkout.session.completed",
		PayloadJSON: `{"a":1}`,
	})
	require.NoError(t, err)
	if created {
		t.Fatalf("expected identical payload to be deduplicated")
	}
	if second.ID != first.ID {
		t.Fatalf("expected stored event %d, got %d", first.ID, second.ID)
	}
}

func TestPurchaseMetadata(t *testing.T) {
	tests := []struct {
		in      map[string]string
		user    uint
		credits int
		wantErr bool
	}{
		{in: map[string]string{"userId": "7", "creditsAmount": "200"}, user: 7, credits: 200},
		{in: map[string]string{"userId": " 7 ", "creditsAmount": " 50 "}, user: 7, credits: 50},
		{in: map[string]string{"creditsAmount": "200"}, wantErr: true},
		{in: map[string]string{"userId": "abc", "creditsAmount": "200"}, wantErr: true},
		{in: map[string]string{"userId": "0", "creditsAmount": "200"}, wantErr: true},
		{in: map[string]string{"userId": "7", "creditsAmount": "0"}, wantErr: true},
		{in: nil, wantErr: true},
	}

	for _, tt := range tests {
		user, credits, err := purchaseMetadata(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrMissingMetadata) {
				t.Fatalf("purchaseMetadata(%v) expected ErrMissingMetadata, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || user != tt.user || credits != tt.credits {
			t.Fatalf("purchaseMetadata(%v) = %d, %d, %v", tt.in, user, credits, err)
		}
	}
}
