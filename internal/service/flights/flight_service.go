package flights

import (
	"context"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/Domenick1991/airbooking/internal/monitoring"
	"github.com/Domenick1991/airbooking/internal/repository"
	"go.uber.org/zap"
)

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
}

type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
}

type FlightService struct {
	repo   repository.FlightRepository
	cache  FlightCache
	logger *zap.Logger
}

// NewFlightService builds the service. cache may be nil.
func NewFlightService(repo repository.FlightRepository, cache FlightCache, logger *zap.Logger) *FlightService {
	return &FlightService{repo: repo, cache: cache, logger: logger}
}

// List serves the whole timetable, from cache when it is warm. Cache failures
// fall through to the database.
func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		cached, err := s.cache.GetFlights(ctx)
		if err != nil {
			s.logger.Warn("flights cache read failed", zap.Error(err))
		}
		monitoring.TrackCache("flights", err == nil && cached != nil)
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.logger.Warn("flights cache write failed", zap.Error(err))
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

var _ FlightUseCase = (*FlightService)(nil)
