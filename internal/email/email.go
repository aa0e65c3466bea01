package email

import (
	"context"

	"github.com/Domenick1991/airbooking/internal/kafka"
	"go.uber.org/zap"
)

// Sender turns order events into customer notifications. Delivery is handled
// by an external mail service, so only the outgoing notification is logged.
type Sender struct {
	logger *zap.Logger
}

func NewSender(logger *zap.Logger) *Sender {
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.OrderEvent) error {
	subject, ok := subjects[event.Type]
	if !ok {
		s.logger.Debug("no notification for event", zap.String("type", event.Type))
		return nil
	}
	s.logger.Info("notify user",
		zap.Int64("user_id", event.UserID),
		zap.Int64("order_id", event.OrderID),
		zap.String("subject", subject),
	)
	return nil
}

var subjects = map[string]string{
	kafka.EventOrderCreated:   "Your tickets are on hold",
	kafka.EventOrderPaid:      "Payment received",
	kafka.EventOrderExpired:   "Your booking has expired",
	kafka.EventOrderCancelled: "Your booking was cancelled",
}
