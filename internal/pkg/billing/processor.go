package billing

import (
	"context"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Processor is the hosted payment provider.
type Processor interface {
	CreateCustomer(ctx context.Context, in CustomerRequest) (string, error)
	CreateCheckoutSession(ctx context.Context, in CheckoutRequest) (*CheckoutSession, error)
}

// StripeProcessor talks to Stripe through the official SDK.
type StripeProcessor struct {
	sc *client.API
}

// NewStripeProcessor creates a processor for the given secret key.
func NewStripeProcessor(secretKey string) *StripeProcessor {
	return &StripeProcessor{sc: client.New(secretKey, nil)}
}

// NewStripeProcessorWithBackends is used to point the SDK at another endpoint.
func NewStripeProcessorWithBackends(secretKey string, backends *stripe.Backends) *StripeProcessor {
	return &StripeProcessor{sc: client.New(secretKey, backends)}
}

func (p *StripeProcessor) CreateCustomer(ctx context.Context, in CustomerRequest) (string, error) {
	params := &stripe.CustomerParams{}
	if in.Email != "" {
		params.Email = stripe.String(in.Email)
	}
	if in.Name != "" {
		params.Name = stripe.String(in.Name)
	}
	params.AddMetadata("userId", strconv.FormatUint(uint64(in.UserID), 10))
	params.Context = ctx

	customer, err := p.sc.Customers.New(params)
	if err != nil {
		return "", err
	}
	return customer.ID, nil
}

func (p *StripeProcessor) CreateCheckoutSession(ctx context.Context, in CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(in.CustomerID),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(in.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	params.AddMetadata("userId", strconv.FormatUint(uint64(in.UserID), 10))
	params.AddMetadata("creditsAmount", strconv.Itoa(in.Credits))
	params.Context = ctx

	session, err := p.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}
