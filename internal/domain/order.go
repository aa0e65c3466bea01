package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusBooked    OrderStatus = "booked"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusExpired   OrderStatus = "expired"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether the status can no longer change.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusExpired || s == OrderStatusCancelled
}

const (
	PaymentMethodCard   = "card"
	PaymentMethodPayPal = "paypal"
	PaymentMethodCash   = "cash"
)

const (
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
)

type Order struct {
	ID            int64
	UserID        int64
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod string
	Status        OrderStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ExpiresAt     time.Time
	Tickets       []Ticket
}

// IsExpired reports whether a booked order has outlived its hold. The
// boundary is inclusive: an order expiring exactly at now is expired.
func (o *Order) IsExpired(now time.Time) bool {
	if o.Status != OrderStatusBooked {
		return false
	}
	return !now.Before(o.ExpiresAt)
}

// TimeRemaining returns whole seconds left on the hold, or nil once the order
// has left the booked state.
func (o *Order) TimeRemaining(now time.Time) *int {
	if o.Status.Terminal() {
		return nil
	}
	left := int(o.ExpiresAt.Sub(now).Seconds())
	if left < 0 {
		left = 0
	}
	return &left
}
