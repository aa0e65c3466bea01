package orders

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/Domenick1991/airbooking/internal/repository"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory stand-in for the orders and tickets tables. Its
// transactions are serialisable: one at a time, rolled back on error.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	orders  map[int64]domain.Order
	tickets map[int64]domain.Ticket
}

type inTxKey struct{}

func newMemStore(tickets ...domain.Ticket) *memStore {
	s := &memStore{orders: map[int64]domain.Order{}, tickets: map[int64]domain.Ticket{}}
	for _, t := range tickets {
		s.tickets[t.ID] = t
	}
	return s
}

func ticket(id int64, price string) domain.Ticket {
	return domain.Ticket{
		ID:           id,
		FlightID:     1,
		FlightNumber: "PS123",
		SeatNumber:   "1" + strconv.FormatInt(id, 10),
		Price:        decimal.RequireFromString(price),
		Status:       domain.TicketStatusAvailable,
	}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := make(map[int64]domain.Order, len(s.orders))
	for k, v := range s.orders {
		orders[k] = v
	}
	tickets := make(map[int64]domain.Ticket, len(s.tickets))
	for k, v := range s.tickets {
		tickets[k] = v
	}
	nextID := s.nextID

	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		s.orders, s.tickets, s.nextID = orders, tickets, nextID
		return err
	}
	return nil
}

func (s *memStore) lock(ctx context.Context) func() {
	if ctx.Value(inTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) Create(ctx context.Context, order *domain.Order) error {
	defer s.lock(ctx)()
	s.nextID++
	order.ID = s.nextID
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	stored := *order
	stored.Tickets = nil
	s.orders[order.ID] = stored
	return nil
}

func (s *memStore) BookTickets(ctx context.Context, orderID int64, ticketIDs []int64) ([]domain.Ticket, error) {
	defer s.lock(ctx)()
	booked := make([]domain.Ticket, 0, len(ticketIDs))
	for _, id := range ticketIDs {
		t, ok := s.tickets[id]
		if !ok || t.Status != domain.TicketStatusAvailable {
			continue
		}
		oid := orderID
		t.Status = domain.TicketStatusBooked
		t.OrderID = &oid
		s.tickets[id] = t
		booked = append(booked, t)
	}
	return booked, nil
}

func (s *memStore) SetAmount(ctx context.Context, orderID int64, amount decimal.Decimal) error {
	defer s.lock(ctx)()
	o := s.orders[orderID]
	o.Amount = amount
	s.orders[orderID] = o
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	defer s.lock(ctx)()
	o, ok := s.orders[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "order", ID: strconv.FormatInt(id, 10)}
	}
	o.Tickets = s.ticketsOf(id)
	return &o, nil
}

func (s *memStore) ListByUser(ctx context.Context, userID int64, statuses []domain.OrderStatus) ([]domain.Order, error) {
	defer s.lock(ctx)()
	out := make([]domain.Order, 0)
	for _, o := range s.orders {
		if o.UserID != userID || !hasStatus(statuses, o.Status) {
			continue
		}
		o.Tickets = s.ticketsOf(o.ID)
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memStore) ExpireStale(ctx context.Context, now time.Time, scope repository.ExpireScope) ([]int64, error) {
	defer s.lock(ctx)()
	var ids []int64
	for id, o := range s.orders {
		if o.Status != domain.OrderStatusBooked || now.Before(o.ExpiresAt) {
			continue
		}
		if (scope.UserID != 0 && o.UserID != scope.UserID) || (scope.OrderID != 0 && id != scope.OrderID) {
			continue
		}
		o.Status = domain.OrderStatusExpired
		s.orders[id] = o
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *memStore) Transition(ctx context.Context, id int64, from, to domain.OrderStatus) (bool, error) {
	defer s.lock(ctx)()
	o, ok := s.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	s.orders[id] = o
	return true, nil
}

func (s *memStore) ReleaseTickets(ctx context.Context, orderIDs []int64) error {
	defer s.lock(ctx)()
	release := make(map[int64]bool, len(orderIDs))
	for _, id := range orderIDs {
		release[id] = true
	}
	for id, t := range s.tickets {
		if t.OrderID != nil && release[*t.OrderID] && t.Status == domain.TicketStatusBooked {
			t.Status = domain.TicketStatusAvailable
			t.OrderID = nil
			s.tickets[id] = t
		}
	}
	return nil
}

func (s *memStore) ticketsOf(orderID int64) []domain.Ticket {
	var out []domain.Ticket
	for _, t := range s.tickets {
		if t.OrderID != nil && *t.OrderID == orderID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) ticketStatus(id int64) domain.TicketStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickets[id].Status
}

func hasStatus(statuses []domain.OrderStatus, st domain.OrderStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

var (
	_ repository.OrderRepository = (*memStore)(nil)
	_ repository.Transactor      = (*memStore)(nil)
)
