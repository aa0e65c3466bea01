package flights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	args := m.Called(ctx, flights)
	return args.Error(0)
}

func sampleFlights() []domain.Flight {
	departure := time.Date(2025, time.June, 11, 8, 30, 0, 0, time.UTC)
	return []domain.Flight{
		{
			ID:            4,
			Number:        "PS101",
			Origin:        domain.Airport{ID: 1, Name: "Lviv Danylo Halytskyi", IATACode: "LWO", Country: domain.Country{ID: 1, Name: "Ukraine", Code: "UA"}},
			Destination:   domain.Airport{ID: 2, Name: "Krakow John Paul II", IATACode: "KRK", Country: domain.Country{ID: 2, Name: "Poland", Code: "PL"}},
			DepartureTime: departure,
			ArrivalTime:   departure.Add(70 * time.Minute),
			Airplane:      domain.Airplane{ID: 7, Registration: "UR-PSA", Model: "Boeing 737-800", SeatsCount: 186, Airline: domain.Airline{ID: 3, Name: "Ukraine International", Code: "PS"}},
			Status:        domain.FlightStatusScheduled,
		},
	}
}

func TestFlightService_List_CacheMiss(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, zap.NewNop())
	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(([]domain.Flight)(nil), nil).Once()
	mockRepo.On("List", ctx).Return(flights, nil).Once()
	mockCache.On("SetFlights", ctx, flights).Return(nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_List_CacheHit(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, zap.NewNop())
	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(flights, nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockRepo.AssertNotCalled(t, "List")
	mockCache.AssertNotCalled(t, "SetFlights")
}

func TestFlightService_List_CacheError(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, zap.NewNop())
	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(([]domain.Flight)(nil), errors.New("cache error")).Once()
	mockRepo.On("List", ctx).Return(flights, nil).Once()
	mockCache.On("SetFlights", ctx, flights).Return(errors.New("cache down")).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_List_RepositoryError(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, zap.NewNop())
	ctx := context.Background()

	expectedErr := errors.New("database error")
	mockCache.On("GetFlights", ctx).Return(([]domain.Flight)(nil), nil).Once()
	mockRepo.On("List", ctx).Return(nil, expectedErr).Once()

	result, err := service.List(ctx)

	assert.Equal(t, expectedErr, err)
	assert.Nil(t, result)
	mockCache.AssertNotCalled(t, "SetFlights")
}

func TestFlightService_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		mockRepo := &MockFlightRepository{}
		service := NewFlightService(mockRepo, nil, zap.NewNop())
		flight := &sampleFlights()[0]
		mockRepo.On("GetByID", ctx, int64(4)).Return(flight, nil).Once()

		result, err := service.GetByID(ctx, 4)

		assert.NoError(t, err)
		assert.Equal(t, flight, result)
	})

	t.Run("Not found", func(t *testing.T) {
		mockRepo := &MockFlightRepository{}
		service := NewFlightService(mockRepo, nil, zap.NewNop())
		mockRepo.On("GetByID", ctx, int64(999)).Return(nil, &domain.NotFoundError{Resource: "flight", ID: "999"}).Once()

		result, err := service.GetByID(ctx, 999)

		assert.True(t, domain.IsNotFound(err))
		assert.Nil(t, result)
	})
}

func TestFlightService_NoCache(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, zap.NewNop())
	ctx := context.Background()
	flights := sampleFlights()

	mockRepo.On("List", ctx).Return(flights, nil).Once()

	result, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockRepo.AssertExpectations(t)
}
