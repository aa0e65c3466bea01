package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightRepository interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := conn(ctx, r.db).Query(ctx, flightSelect+` ORDER BY f.departure_time`)
	if err != nil {
		return nil, err
	}
	flights, err := pgx.CollectRows(rows, pgx.RowToStructByName[flightRow])
	if err != nil {
		return nil, err
	}
	return flightsFromRows(flights), nil
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	rows, err := conn(ctx, r.db).Query(ctx, flightSelect+` WHERE f.id = $1`, id)
	if err != nil {
		return nil, err
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[flightRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: "flight", ID: strconv.FormatInt(id, 10)}
		}
		return nil, err
	}
	f := row.toDomain()
	return &f, nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
