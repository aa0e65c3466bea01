package payment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// CheckoutRequest describes a single-order checkout.
type CheckoutRequest struct {
	OrderID        int64
	UserID         int64
	Amount         decimal.Decimal
	Currency       string
	ExpiresAt      time.Time
	IdempotencyKey string
}

type CheckoutSession struct {
	ID  string
	URL string
}

type StripeGateway struct {
	api        *client.API
	successURL string
	cancelURL  string
}

// NewStripeGateway uses its own API client so the secret key never lands in
// the stripe package globals.
func NewStripeGateway(secretKey, successURL, cancelURL string) *StripeGateway {
	return &StripeGateway{
		api:        client.New(secretKey, nil),
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := g.checkoutParams(req)
	params.Context = ctx

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) checkoutParams(req CheckoutRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		ClientReferenceID: stripe.String(strconv.FormatInt(req.UserID, 10)),
		ExpiresAt:         stripe.Int64(req.ExpiresAt.Unix()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(MinorUnits(req.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Order #%d", req.OrderID)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.AddMetadata("order_id", strconv.FormatInt(req.OrderID, 10))
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	return params
}

// MinorUnits converts a two-decimal amount to cents.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts cents back to a two-decimal amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
