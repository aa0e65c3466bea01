package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
	PaymentStatusExpired PaymentStatus = "expired"
)

func (s PaymentStatus) Terminal() bool {
	return s != PaymentStatusPending
}

type Payment struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	OrderID         *int64          `json:"order_id,omitempty"`
	SessionID       string          `json:"stripe_session_id"`
	PaymentIntentID *string         `json:"stripe_payment_intent,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Status          PaymentStatus   `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
}

// IsExpired reports whether the checkout session hold has passed.
func (p *Payment) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}
