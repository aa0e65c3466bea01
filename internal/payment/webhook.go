package payment

import (
	"encoding/json"
	"fmt"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Verify checks the Stripe-Signature header against the raw payload and
// decodes the event.
func (v *WebhookVerifier) Verify(payload []byte, header string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, &domain.SignatureError{Err: err}
	}
	return event, nil
}

func DecodeCheckoutSession(event stripe.Event) (*stripe.CheckoutSession, error) {
	if event.Data == nil {
		return nil, fmt.Errorf("event %s has no data", event.ID)
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return &s, nil
}

func DecodePaymentIntent(event stripe.Event) (*stripe.PaymentIntent, error) {
	if event.Data == nil {
		return nil, fmt.Errorf("event %s has no data", event.ID)
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	return &pi, nil
}
