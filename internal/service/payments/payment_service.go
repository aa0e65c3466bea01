package payments

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
	"github.com/Domenick1991/airbooking/internal/payment"
	"github.com/Domenick1991/airbooking/internal/repository"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

type PaymentUseCase interface {
	CreateCheckoutSession(ctx context.Context, userID, orderID int64) (*payment.CheckoutSession, error)
	List(ctx context.Context, userID int64) ([]domain.Payment, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error)
}

type EventVerifier interface {
	Verify(payload []byte, header string) (stripe.Event, error)
}

// Orders is the part of the order lifecycle the payment flow drives.
type Orders interface {
	Get(ctx context.Context, userID, orderID int64) (*domain.Order, error)
	Settle(ctx context.Context, orderID int64) (bool, error)
	Announce(ctx context.Context, eventType string, orderID, userID int64)
}

const (
	outcomeSettled   = "settled"
	outcomeDuplicate = "duplicate"
	outcomeExpired   = "expired_session"
	outcomeIgnored   = "ignored"
	outcomeUpdated   = "updated"
	outcomeError     = "error"
)

// errDuplicate rolls back a settlement that lost a race to another delivery.
var errDuplicate = errors.New("duplicate delivery")

type Service struct {
	tx         repository.Transactor
	payments   repository.PaymentRepository
	orderRepo  repository.OrderRepository
	orders     Orders
	gateway    Gateway
	verifier   EventVerifier
	sessionTTL time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func NewService(
	tx repository.Transactor,
	payments repository.PaymentRepository,
	orderRepo repository.OrderRepository,
	orders Orders,
	gateway Gateway,
	verifier EventVerifier,
	sessionTTL time.Duration,
	logger *zap.Logger,
) *Service {
	return &Service{
		tx:         tx,
		payments:   payments,
		orderRepo:  orderRepo,
		orders:     orders,
		gateway:    gateway,
		verifier:   verifier,
		sessionTTL: sessionTTL,
		now:        time.Now,
		logger:     logger,
	}
}

// CreateCheckoutSession opens a hosted checkout for a booked order of the user
// and records a pending payment for it.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID, orderID int64) (*payment.CheckoutSession, error) {
	order, err := s.orders.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if order.Status != domain.OrderStatusBooked {
		return nil, &domain.ConflictError{Resource: "order", IDs: []int64{orderID}, Reason: fmt.Sprintf("order is %s", order.Status)}
	}
	if order.IsExpired(now) {
		return nil, &domain.ConflictError{Resource: "order", IDs: []int64{orderID}, Reason: "order hold has expired"}
	}

	expiresAt := now.Add(s.sessionTTL)
	session, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		OrderID:        order.ID,
		UserID:         userID,
		Amount:         order.Amount,
		Currency:       order.Currency,
		ExpiresAt:      expiresAt,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}

	p := &domain.Payment{
		UserID:    userID,
		OrderID:   &order.ID,
		SessionID: session.ID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		Status:    domain.PaymentStatusPending,
		ExpiresAt: &expiresAt,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("checkout session created",
		zap.Int64("order_id", order.ID),
		zap.Int64("payment_id", p.ID),
		zap.String("session_id", session.ID),
	)
	return session, nil
}

func (s *Service) List(ctx context.Context, userID int64) ([]domain.Payment, error) {
	return s.payments.ListByUser(ctx, userID)
}

// HandleWebhook verifies and applies a payment processor event. Only a bad
// signature is reported to the caller; every later failure is logged and the
// event acknowledged.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.verifier.Verify(payload, signature)
	if err != nil {
		monitoring.TrackWebhook("unverified", outcomeError)
		s.logger.Warn("webhook signature rejected", zap.Error(err))
		return err
	}

	var outcome string
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		outcome, err = s.sessionCompleted(ctx, event)
	case stripe.EventTypePaymentIntentPaymentFailed:
		outcome, err = s.paymentFailed(ctx, event)
	case stripe.EventTypeCheckoutSessionExpired:
		outcome, err = s.sessionExpired(ctx, event)
	default:
		outcome = outcomeIgnored
	}
	if err != nil {
		outcome = outcomeError
		s.logger.Error("webhook processing failed",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}

	monitoring.TrackWebhook(string(event.Type), outcome)
	s.logger.Info("webhook handled",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("outcome", outcome),
	)
	return nil
}

func (s *Service) sessionCompleted(ctx context.Context, event stripe.Event) (string, error) {
	session, err := payment.DecodeCheckoutSession(event)
	if err != nil {
		return "", err
	}

	orderID, err := strconv.ParseInt(session.Metadata["order_id"], 10, 64)
	if err != nil {
		return outcomeIgnored, nil
	}
	userID, err := strconv.ParseInt(session.ClientReferenceID, 10, 64)
	if err != nil {
		return outcomeIgnored, nil
	}
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if domain.IsNotFound(err) {
			return outcomeIgnored, nil
		}
		return "", err
	}
	if order.UserID != userID {
		return outcomeIgnored, nil
	}

	var intentID string
	if session.PaymentIntent != nil {
		intentID = session.PaymentIntent.ID
	}

	var (
		outcome string
		settled bool
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.payments.GetBySessionForUpdate(ctx, session.ID)
		if err != nil {
			if domain.IsNotFound(err) {
				outcome = outcomeIgnored
				return nil
			}
			return err
		}

		if p.Status.Terminal() {
			outcome = outcomeDuplicate
			return nil
		}

		if p.IsExpired(s.now()) {
			if _, err := s.payments.Transition(ctx, p.ID, domain.PaymentStatusPending, domain.PaymentStatusExpired); err != nil {
				return err
			}
			outcome = outcomeExpired
			return nil
		}

		if intentID != "" {
			existing, err := s.payments.GetByIntent(ctx, intentID)
			switch {
			case err == nil && existing.ID != p.ID:
				outcome = outcomeDuplicate
				return nil
			case err != nil && !domain.IsNotFound(err):
				return err
			}
		}

		currency := strings.ToUpper(string(session.Currency))
		if currency == "" {
			currency = p.Currency
		}
		if err := s.payments.MarkPaid(ctx, p.ID, intentID, payment.FromMinorUnits(session.AmountTotal), currency); err != nil {
			var conflict *domain.ConflictError
			if errors.As(err, &conflict) {
				return errDuplicate
			}
			return err
		}

		settled, err = s.orders.Settle(ctx, orderID)
		if err != nil {
			return err
		}
		outcome = outcomeSettled
		return nil
	})
	if errors.Is(err, errDuplicate) {
		return outcomeDuplicate, nil
	}
	if err != nil {
		return "", err
	}

	if settled {
		s.orders.Announce(ctx, kafka.EventOrderPaid, orderID, userID)
	}
	return outcome, nil
}

func (s *Service) paymentFailed(ctx context.Context, event stripe.Event) (string, error) {
	pi, err := payment.DecodePaymentIntent(event)
	if err != nil {
		return "", err
	}

	p, err := s.payments.GetByIntent(ctx, pi.ID)
	if err != nil {
		if domain.IsNotFound(err) {
			return outcomeIgnored, nil
		}
		return "", err
	}

	changed, err := s.payments.Transition(ctx, p.ID, domain.PaymentStatusPending, domain.PaymentStatusFailed)
	if err != nil {
		return "", err
	}
	if !changed {
		return outcomeDuplicate, nil
	}
	return outcomeUpdated, nil
}

func (s *Service) sessionExpired(ctx context.Context, event stripe.Event) (string, error) {
	session, err := payment.DecodeCheckoutSession(event)
	if err != nil {
		return "", err
	}

	var outcome string
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.payments.GetBySessionForUpdate(ctx, session.ID)
		if err != nil {
			if domain.IsNotFound(err) {
				outcome = outcomeIgnored
				return nil
			}
			return err
		}

		changed, err := s.payments.Transition(ctx, p.ID, domain.PaymentStatusPending, domain.PaymentStatusExpired)
		if err != nil {
			return err
		}
		outcome = outcomeUpdated
		if !changed {
			outcome = outcomeDuplicate
		}
		return nil
	})
	return outcome, err
}

var _ PaymentUseCase = (*Service)(nil)
