package domain

import "github.com/shopspring/decimal"

type TicketStatus string

const (
	TicketStatusAvailable TicketStatus = "available"
	TicketStatusBooked    TicketStatus = "booked"
	TicketStatusUsed      TicketStatus = "used"
	TicketStatusCancelled TicketStatus = "cancelled"
)

type Ticket struct {
	ID           int64           `json:"id" db:"id"`
	FlightID     int64           `json:"flight_id" db:"flight_id"`
	FlightNumber string          `json:"flight_number" db:"flight_number"`
	SeatNumber   string          `json:"seat_number" db:"seat_number"`
	Price        decimal.Decimal `json:"price" db:"price"`
	Status       TicketStatus    `json:"status" db:"status"`
	OrderID      *int64          `json:"order_id,omitempty" db:"order_id"`
}

// SumPrices returns the total price of the given tickets.
func SumPrices(tickets []Ticket) decimal.Decimal {
	total := decimal.Zero
	for _, t := range tickets {
		total = total.Add(t.Price)
	}
	return total.Round(2)
}
