package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/Domenick1991/airbooking/internal/kafka"
	"github.com/Domenick1991/airbooking/internal/monitoring"
	"github.com/Domenick1991/airbooking/internal/repository"
	"go.uber.org/zap"
)

type CreateOrderInput struct {
	UserID        int64
	TicketIDs     []int64
	Currency      string
	PaymentMethod string
}

type OrderUseCase interface {
	Create(ctx context.Context, in CreateOrderInput) (*domain.Order, error)
	List(ctx context.Context, userID int64, includeInactive bool) ([]domain.Order, error)
	Get(ctx context.Context, userID, orderID int64) (*domain.Order, error)
	Cancel(ctx context.Context, userID, orderID int64) (*domain.Order, error)
}

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event kafka.OrderEvent) error
}

type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, orderID int64, at time.Time) error
}

type Service struct {
	tx              repository.Transactor
	orders          repository.OrderRepository
	publisher       EventPublisher
	scheduler       ExpiryScheduler
	holdTTL         time.Duration
	defaultCurrency string
	now             func() time.Time
	logger          *zap.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithScheduler(sch ExpiryScheduler) Option {
	return func(s *Service) { s.scheduler = sch }
}

func NewService(tx repository.Transactor, orders repository.OrderRepository, holdTTL time.Duration, defaultCurrency string, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		tx:              tx,
		orders:          orders,
		holdTTL:         holdTTL,
		defaultCurrency: defaultCurrency,
		now:             time.Now,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	currencies     = map[string]bool{domain.CurrencyUSD: true, domain.CurrencyEUR: true}
	paymentMethods = map[string]bool{domain.PaymentMethodCard: true, domain.PaymentMethodPayPal: true, domain.PaymentMethodCash: true}
)

func (s *Service) validate(in *CreateOrderInput) error {
	if in.UserID <= 0 {
		return &domain.ValidationError{Field: "user_id", Message: "user is required"}
	}
	if len(in.TicketIDs) == 0 {
		return &domain.ValidationError{Field: "tickets", Message: "at least one ticket is required"}
	}
	seen := make(map[int64]bool, len(in.TicketIDs))
	for _, id := range in.TicketIDs {
		if id <= 0 {
			return &domain.ValidationError{Field: "tickets", Message: fmt.Sprintf("invalid ticket id %d", id)}
		}
		if seen[id] {
			return &domain.ValidationError{Field: "tickets", Message: fmt.Sprintf("ticket %d is listed more than once", id)}
		}
		seen[id] = true
	}

	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = s.defaultCurrency
	}
	if !currencies[in.Currency] {
		return &domain.ValidationError{Field: "currency", Message: fmt.Sprintf("unsupported currency %q", in.Currency)}
	}

	in.PaymentMethod = strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if !paymentMethods[in.PaymentMethod] {
		return &domain.ValidationError{Field: "payment_method", Message: fmt.Sprintf("unsupported payment method %q", in.PaymentMethod)}
	}
	return nil
}

// Create books every requested ticket for a new order or none of them. A
// ticket that is no longer available rolls the whole order back with a
// *domain.ConflictError naming the missing tickets.
func (s *Service) Create(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	order := &domain.Order{
		UserID:        in.UserID,
		Currency:      in.Currency,
		PaymentMethod: in.PaymentMethod,
		Status:        domain.OrderStatusBooked,
		ExpiresAt:     s.now().Add(s.holdTTL),
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}

		booked, err := s.orders.BookTickets(ctx, order.ID, in.TicketIDs)
		if err != nil {
			return err
		}
		if len(booked) != len(in.TicketIDs) {
			return &domain.ConflictError{
				Resource: "tickets",
				IDs:      missing(in.TicketIDs, booked),
				Reason:   "not available",
			}
		}

		order.Amount = domain.SumPrices(booked)
		order.Tickets = booked
		return s.orders.SetAmount(ctx, order.ID, order.Amount)
	})
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			monitoring.TrackOrderEvent("conflict")
		}
		return nil, err
	}

	monitoring.TrackOrderEvent(kafka.EventOrderCreated)
	s.logger.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", order.UserID),
		zap.String("amount", order.Amount.StringFixed(2)),
	)

	event := kafka.NewOrderEvent(kafka.EventOrderCreated, order.ID, order.UserID, string(order.Status))
	event.Amount = order.Amount.StringFixed(2)
	event.Currency = order.Currency
	event.ExpiresAt = order.ExpiresAt
	for _, t := range order.Tickets {
		event.TicketIDs = append(event.TicketIDs, t.ID)
	}
	s.publish(ctx, event)

	if s.scheduler != nil {
		if err := s.scheduler.ScheduleExpiry(ctx, order.ID, order.ExpiresAt); err != nil {
			s.logger.Warn("failed to schedule order expiry", zap.Int64("order_id", order.ID), zap.Error(err))
		}
	}
	return order, nil
}

func missing(requested []int64, booked []domain.Ticket) []int64 {
	got := make(map[int64]bool, len(booked))
	for _, t := range booked {
		got[t.ID] = true
	}
	var out []int64
	for _, id := range requested {
		if !got[id] {
			out = append(out, id)
		}
	}
	return out
}

// List expires the user's stale holds first, then returns booked and paid
// orders, or every order when includeInactive is set.
func (s *Service) List(ctx context.Context, userID int64, includeInactive bool) ([]domain.Order, error) {
	if _, err := s.expire(ctx, repository.ExpireScope{UserID: userID}, userID); err != nil {
		return nil, err
	}

	var statuses []domain.OrderStatus
	if !includeInactive {
		statuses = []domain.OrderStatus{domain.OrderStatusBooked, domain.OrderStatusPaid}
	}
	return s.orders.ListByUser(ctx, userID, statuses)
}

func (s *Service) Get(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	if _, err := s.expire(ctx, repository.ExpireScope{UserID: userID, OrderID: orderID}, userID); err != nil {
		return nil, err
	}
	return s.owned(ctx, userID, orderID)
}

// Cancel releases a booked order's tickets. Orders already in a terminal
// state are returned unchanged.
func (s *Service) Cancel(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	if _, err := s.expire(ctx, repository.ExpireScope{UserID: userID, OrderID: orderID}, userID); err != nil {
		return nil, err
	}

	var (
		order     *domain.Order
		cancelled bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.owned(ctx, userID, orderID)
		if err != nil {
			return err
		}
		if o.Status != domain.OrderStatusBooked {
			order = o
			return nil
		}

		cancelled, err = s.orders.Transition(ctx, orderID, domain.OrderStatusBooked, domain.OrderStatusCancelled)
		if err != nil {
			return err
		}
		if cancelled {
			if err := s.orders.ReleaseTickets(ctx, []int64{orderID}); err != nil {
				return err
			}
		}
		order, err = s.orders.GetByID(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if cancelled {
		monitoring.TrackOrderEvent(kafka.EventOrderCancelled)
		s.publish(ctx, kafka.NewOrderEvent(kafka.EventOrderCancelled, orderID, userID, string(domain.OrderStatusCancelled)))
	}
	return order, nil
}

// Settle marks a booked order paid. It reports false when the order was not
// booked, so repeated settlement is a no-op. It joins the caller's
// transaction when there is one.
func (s *Service) Settle(ctx context.Context, orderID int64) (bool, error) {
	settled, err := s.orders.Transition(ctx, orderID, domain.OrderStatusBooked, domain.OrderStatusPaid)
	if err != nil {
		return false, fmt.Errorf("settle order %d: %w", orderID, err)
	}
	if settled {
		monitoring.TrackOrderEvent(kafka.EventOrderPaid)
	}
	return settled, nil
}

// Announce publishes an order event outside of any transaction.
func (s *Service) Announce(ctx context.Context, eventType string, orderID, userID int64) {
	status := strings.TrimPrefix(eventType, "order_")
	s.publish(ctx, kafka.NewOrderEvent(eventType, orderID, userID, status))
}

// ExpireOrder expires a single order whose hold has ended. It reports whether
// this call performed the transition.
func (s *Service) ExpireOrder(ctx context.Context, orderID int64) (bool, error) {
	ids, err := s.expire(ctx, repository.ExpireScope{OrderID: orderID}, 0)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// ExpireStale expires every stale hold and returns how many orders moved.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	ids, err := s.expire(ctx, repository.ExpireScope{}, 0)
	return len(ids), err
}

func (s *Service) expire(ctx context.Context, scope repository.ExpireScope, userID int64) ([]int64, error) {
	var ids []int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ids, err = s.orders.ExpireStale(ctx, s.now(), scope)
		if err != nil {
			return err
		}
		return s.orders.ReleaseTickets(ctx, ids)
	})
	if err != nil {
		return nil, fmt.Errorf("expire orders: %w", err)
	}

	if len(ids) > 0 {
		monitoring.TrackOrderEvents(kafka.EventOrderExpired, len(ids))
		s.logger.Info("orders expired", zap.Int64s("order_ids", ids))
		for _, id := range ids {
			s.publish(ctx, kafka.NewOrderEvent(kafka.EventOrderExpired, id, userID, string(domain.OrderStatusExpired)))
		}
	}
	return ids, nil
}

func (s *Service) owned(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, &domain.NotFoundError{Resource: "order", ID: strconv.FormatInt(orderID, 10)}
	}
	return order, nil
}

func (s *Service) publish(ctx context.Context, event kafka.OrderEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish order event",
			zap.String("type", event.Type),
			zap.Int64("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}

var _ OrderUseCase = (*Service)(nil)
