package api

import (
	"context"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/Domenick1991/airbooking/internal/intent"
	"github.com/Domenick1991/airbooking/internal/payment"
	"github.com/Domenick1991/airbooking/internal/service/assistant"
	"github.com/Domenick1991/airbooking/internal/service/orders"
	"github.com/stretchr/testify/mock"
)

type MockFlightUseCase struct {
	mock.Mock
}

func (m *MockFlightUseCase) List(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

type MockAssistantUseCase struct {
	mock.Mock
}

func (m *MockAssistantUseCase) Query(ctx context.Context, prompt, lang string) (assistant.Envelope, error) {
	args := m.Called(ctx, prompt, lang)
	return args.Get(0).(assistant.Envelope), args.Error(1)
}

func (m *MockAssistantUseCase) RunAction(ctx context.Context, action string, params intent.QueryParams, lang string) (any, error) {
	args := m.Called(ctx, action, params, lang)
	return args.Get(0), args.Error(1)
}

type MockOrderUseCase struct {
	mock.Mock
}

func (m *MockOrderUseCase) Create(ctx context.Context, in orders.CreateOrderInput) (*domain.Order, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderUseCase) List(ctx context.Context, userID int64, includeInactive bool) ([]domain.Order, error) {
	args := m.Called(ctx, userID, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockOrderUseCase) Get(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	args := m.Called(ctx, userID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderUseCase) Cancel(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	args := m.Called(ctx, userID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

type MockPaymentUseCase struct {
	mock.Mock
}

func (m *MockPaymentUseCase) CreateCheckoutSession(ctx context.Context, userID, orderID int64) (*payment.CheckoutSession, error) {
	args := m.Called(ctx, userID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CheckoutSession), args.Error(1)
}

func (m *MockPaymentUseCase) List(ctx context.Context, userID int64) ([]domain.Payment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Payment), args.Error(1)
}

func (m *MockPaymentUseCase) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	args := m.Called(ctx, payload, signature)
	return args.Error(0)
}
