package billing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

type stripeStub struct {
	mu    sync.Mutex
	forms map[string]url.Values
}

func newStripeProcessorStub(t *testing.T, status int) (*StripeProcessor, *stripeStub) {
	t.Helper()
	stub := &stripeStub{forms: map[string]url.Values{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		stub.mu.Lock()
		stub.forms[r.URL.Path] = r.PostForm
		stub.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"No such price"}}`)
			return
		}
		switch r.URL.Path {
		case "/v1/customers":
			fmt.Fprint(w, `{"id":"cus_stub","object":"customer"}`)
		case "/v1/checkout/sessions":
			fmt.Fprint(w, `{"id":"cs_stub","object":"checkout.session","url":"https://checkout.stripe.test/cs_stub"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripeProcessorWithBackends("sk_test_stub", &stripe.Backends{API: backend, Connect: backend, Uploads: backend}), stub
}

func (s *stripeStub) form(path string) url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forms[path]
}

func TestStripeProcessor_CreateCustomer(t *testing.T) {
	p, stub := newStripeProcessorStub(t, http.StatusOK)

	id, err := p.CreateCustomer(context.Background(), CustomerRequest{UserID: 7, Email: "owner@example.com", Name: "Pet Owner"})
	require.NoError(t, err)
	assert.Equal(t, "cus_stub", id)

	form := stub.form("/v1/customers")
	assert.Equal(t, "owner@example.com", form.Get("email"))
	assert.Equal(t, "7", form.Get("metadata[userId]"))
}

func TestStripeProcessor_CreateCheckoutSession(t *testing.T) {
	p, stub := newStripeProcessorStub(t, http.StatusOK)

	session, err := p.CreateCheckoutSession(context.Background(), CheckoutRequest{
		CustomerID: "cus_stub",
		PriceID:    "price_pack",
		UserID:     7,
		Credits:    200,
		SuccessURL: "http://localhost/billing?success=true",
		CancelURL:  "http://localhost/billing?canceled=true",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_stub", session.ID)
	assert.Equal(t, "https://checkout.stripe.test/cs_stub", session.URL)

	form := stub.form("/v1/checkout/sessions")
	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "price_pack", form.Get("line_items[0][price]"))
	assert.Equal(t, "1", form.Get("line_items[0][quantity]"))
	assert.Equal(t, "7", form.Get("metadata[userId]"))
	assert.Equal(t, "200", form.Get("metadata[creditsAmount]"))
}

func TestStripeProcessor_PropagatesAPIError(t *testing.T) {
	p, _ := newStripeProcessorStub(t, http.StatusBadRequest)

	_, err := p.CreateCheckoutSession(context.Background(), CheckoutRequest{CustomerID: "cus_stub", PriceID: "price_missing"})
	require.Error(t, err)
	var stripeErr *stripe.Error
	assert.ErrorAs(t, err, &stripeErr)
}
