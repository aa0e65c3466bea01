package assistant

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/Domenick1991/airbooking/internal/intent"
	"github.com/Domenick1991/airbooking/internal/monitoring"
	"github.com/Domenick1991/airbooking/internal/repository"
	"go.uber.org/zap"
)

// QueryCache stores serialised query results.
type QueryCache interface {
	GetQuery(ctx context.Context, key string, dest any) (bool, error)
	SetQuery(ctx context.Context, key string, value any) error
}

// Result holds the rows of exactly one action. Only the slice matching Action
// is populated.
type Result struct {
	Action    string
	Flights   []domain.Flight
	Countries []domain.CountrySummary
	Airlines  []domain.AirlineSummary
	Tickets   []domain.Ticket
}

func (r Result) Len() int {
	return len(r.Flights) + len(r.Countries) + len(r.Airlines) + len(r.Tickets)
}

type Executor struct {
	catalog repository.CatalogRepository
	cache   QueryCache
	loc     *time.Location
	hub     string
	logger  *zap.Logger
}

func NewExecutor(catalog repository.CatalogRepository, cache QueryCache, loc *time.Location, hub string, logger *zap.Logger) *Executor {
	if loc == nil {
		loc = time.UTC
	}
	return &Executor{catalog: catalog, cache: cache, loc: loc, hub: hub, logger: logger}
}

// Execute runs the query for a whitelisted action. Unknown actions yield an
// empty result.
func (e *Executor) Execute(ctx context.Context, action string, params intent.QueryParams) (Result, error) {
	res := Result{Action: action}
	var err error

	switch action {
	case intent.ActionSearchFlights:
		err = e.cached(ctx, action, params, &res.Flights, func() (any, error) {
			return e.catalog.SearchFlights(ctx, repository.FlightQuery{
				Origin:      params.Filters[intent.FilterOrigin],
				Destination: params.Filters[intent.FilterDestination],
				Day:         e.dayRange(params.Filters[intent.FilterDate]),
				SortBy:      params.Sort.By,
				SortOrder:   params.Sort.Order,
				Limit:       params.Limit,
			})
		})
	case intent.ActionSearchCountries:
		err = e.cached(ctx, action, params, &res.Countries, func() (any, error) {
			return e.catalog.CountriesFromOrigin(ctx, repository.CountryQuery{
				Origin:    e.origin(params),
				Day:       e.dayRange(params.Filters[intent.FilterDate]),
				SortBy:    params.Sort.By,
				SortOrder: params.Sort.Order,
				Limit:     params.Limit,
			})
		})
	case intent.ActionSearchAirlines:
		err = e.cached(ctx, action, params, &res.Airlines, func() (any, error) {
			return e.catalog.AirlinesFromAirport(ctx, repository.AirlineQuery{
				Origin:    e.origin(params),
				SortBy:    params.Sort.By,
				SortOrder: params.Sort.Order,
				Limit:     params.Limit,
			})
		})
	case intent.ActionSearchTickets, intent.ActionSearchAvailableTickets, intent.ActionSearchBookedTickets:
		q := repository.TicketQuery{
			FlightID:  e.flightID(params.Filters[intent.FilterFlightID]),
			SortBy:    params.Sort.By,
			SortOrder: params.Sort.Order,
			Limit:     params.Limit,
		}
		switch action {
		case intent.ActionSearchAvailableTickets:
			q.Status = domain.TicketStatusAvailable
		case intent.ActionSearchBookedTickets:
			q.Status = domain.TicketStatusBooked
		}
		res.Tickets, err = e.catalog.SearchTickets(ctx, q)
	default:
		return res, nil
	}

	if err != nil {
		return Result{Action: action}, err
	}
	return res, nil
}

// cached serves dest from the query cache or fills it with load. Cache
// failures fall through to the database.
func (e *Executor) cached(ctx context.Context, action string, params intent.QueryParams, dest any, load func() (any, error)) error {
	key := cacheKey(action, params)

	if e.cache != nil {
		hit, err := e.cache.GetQuery(ctx, key, dest)
		if err != nil {
			e.logger.Warn("query cache read failed", zap.String("action", action), zap.Error(err))
		}
		monitoring.TrackCache("query", hit)
		if hit {
			return nil
		}
	}

	rows, err := load()
	if err != nil {
		return err
	}
	if err := assign(dest, rows); err != nil {
		return err
	}

	if e.cache != nil {
		if err := e.cache.SetQuery(ctx, key, rows); err != nil {
			e.logger.Warn("query cache write failed", zap.String("action", action), zap.Error(err))
		}
	}
	return nil
}

func assign(dest any, rows any) error {
	switch d := dest.(type) {
	case *[]domain.Flight:
		*d = rows.([]domain.Flight)
	case *[]domain.CountrySummary:
		*d = rows.([]domain.CountrySummary)
	case *[]domain.AirlineSummary:
		*d = rows.([]domain.AirlineSummary)
	default:
		b, err := json.Marshal(rows)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dest)
	}
	return nil
}

func cacheKey(action string, params intent.QueryParams) string {
	b, _ := json.Marshal(params)
	return action + "|" + string(b)
}

func (e *Executor) origin(params intent.QueryParams) string {
	if o := params.Filters[intent.FilterOrigin]; o != "" {
		return o
	}
	return e.hub
}

// dayRange reads a YYYY-MM-DD date as a whole local calendar day. Malformed
// dates leave the query unfiltered.
func (e *Executor) dayRange(value string) *repository.DayRange {
	if value == "" {
		return nil
	}
	day, err := time.ParseInLocation(intent.DateLayout, value, e.loc)
	if err != nil {
		e.logger.Debug("ignoring malformed date filter", zap.String("date", value), zap.Error(err))
		return nil
	}
	return &repository.DayRange{From: day, To: day.AddDate(0, 0, 1)}
}

func (e *Executor) flightID(value string) int64 {
	if value == "" {
		return 0
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		e.logger.Debug("ignoring malformed flight_id filter", zap.String("flight_id", value))
		return 0
	}
	return id
}
