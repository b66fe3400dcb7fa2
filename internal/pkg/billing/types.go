package billing

import "github.com/ManuelReschke/PetsSanta/app/models"

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// CustomerRequest carries what the processor needs to create a customer.
type CustomerRequest struct {
	UserID uint
	Email  string
	Name   string
}

// CheckoutRequest describes a hosted checkout for one credit pack.
type CheckoutRequest struct {
	CustomerID string
	PriceID    string
	UserID     uint
	Credits    int
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the processor's answer to a CheckoutRequest.
type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

// Overview is the billing page of a user.
type Overview struct {
	Credits      int                    `json:"credits"`
	Payments     []models.StripePayment `json:"payments"`
	UsageHistory []models.CreditUsage   `json:"usageHistory"`
}
