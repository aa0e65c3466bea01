package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DayRange is a half-open interval [From, To).
type DayRange struct {
	From time.Time
	To   time.Time
}

type FlightQuery struct {
	Origin      string
	Destination string
	Day         *DayRange
	SortBy      string
	SortOrder   string
	Limit       int
}

type CountryQuery struct {
	Origin    string
	Day       *DayRange
	SortBy    string
	SortOrder string
	Limit     int
}

type AirlineQuery struct {
	Origin    string
	SortBy    string
	SortOrder string
	Limit     int
}

type TicketQuery struct {
	FlightID  int64
	Status    domain.TicketStatus
	SortBy    string
	SortOrder string
	Limit     int
}

// CatalogRepository serves the read-only queries behind natural-language
// questions.
type CatalogRepository interface {
	SearchFlights(ctx context.Context, q FlightQuery) ([]domain.Flight, error)
	CountriesFromOrigin(ctx context.Context, q CountryQuery) ([]domain.CountrySummary, error)
	AirlinesFromAirport(ctx context.Context, q AirlineQuery) ([]domain.AirlineSummary, error)
	SearchTickets(ctx context.Context, q TicketQuery) ([]domain.Ticket, error)
}

type SQLCatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) CatalogRepository {
	return &SQLCatalogRepository{db: db}
}

// OpenCatalogDB connects the lib/pq driver used for catalogue reads.
func OpenCatalogDB(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to catalog database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

var (
	flightSortColumns = map[string]string{
		"departure_time": "f.departure_time",
		"arrival_time":   "f.arrival_time",
		"number":         "f.number",
	}
	countrySortColumns = map[string]string{
		"country_name": "country_name",
		"country_code": "country_code",
	}
	airlineSortColumns = map[string]string{
		"name": "a.name",
		"code": "a.code",
	}
	ticketSortColumns = map[string]string{
		"price":       "t.price",
		"seat_number": "t.seat_number",
	}
)

// where accumulates parameterised predicates.
type where struct {
	clauses []string
	args    []any
}

func (w *where) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *where) add(clause string) {
	w.clauses = append(w.clauses, clause)
}

// airport matches an airport alias by exact IATA code or by name substring,
// both case-insensitive.
func (w *where) airport(alias, value string) {
	p := w.arg(value)
	w.add(fmt.Sprintf("(LOWER(%[1]s.iata_code) = LOWER(%[2]s) OR %[1]s.name ILIKE '%%' || %[2]s || '%%')", alias, p))
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func orderBy(columns map[string]string, by, order, fallback string) string {
	col, ok := columns[by]
	if !ok {
		return " ORDER BY " + fallback
	}
	if strings.EqualFold(order, "desc") {
		return " ORDER BY " + col + " DESC"
	}
	return " ORDER BY " + col + " ASC"
}

func (r *SQLCatalogRepository) SearchFlights(ctx context.Context, q FlightQuery) ([]domain.Flight, error) {
	var w where
	if q.Origin != "" {
		w.airport("o", q.Origin)
	}
	if q.Destination != "" {
		w.airport("d", q.Destination)
	}
	if q.Day != nil {
		w.add(fmt.Sprintf("f.departure_time >= %s AND f.departure_time < %s", w.arg(q.Day.From), w.arg(q.Day.To)))
	}

	query := flightSelect + w.String() + orderBy(flightSortColumns, q.SortBy, q.SortOrder, "f.id") + " LIMIT " + w.arg(q.Limit)

	var rows []flightRow
	if err := r.db.SelectContext(ctx, &rows, query, w.args...); err != nil {
		return nil, fmt.Errorf("search flights: %w", err)
	}
	return flightsFromRows(rows), nil
}

func (r *SQLCatalogRepository) CountriesFromOrigin(ctx context.Context, q CountryQuery) ([]domain.CountrySummary, error) {
	var w where
	if q.Origin != "" {
		w.airport("o", q.Origin)
	}
	if q.Day != nil {
		w.add(fmt.Sprintf("f.departure_time >= %s AND f.departure_time < %s", w.arg(q.Day.From), w.arg(q.Day.To)))
	}

	query := `SELECT DISTINCT dc.id AS country_id, dc.name AS country_name, dc.code AS country_code
FROM flights f
JOIN airports o ON o.id = f.origin_id
JOIN airports d ON d.id = f.destination_id
JOIN countries dc ON dc.id = d.country_id` +
		w.String() + orderBy(countrySortColumns, q.SortBy, q.SortOrder, "country_name") + " LIMIT " + w.arg(q.Limit)

	countries := make([]domain.CountrySummary, 0)
	if err := r.db.SelectContext(ctx, &countries, query, w.args...); err != nil {
		return nil, fmt.Errorf("search countries: %w", err)
	}
	return countries, nil
}

func (r *SQLCatalogRepository) AirlinesFromAirport(ctx context.Context, q AirlineQuery) ([]domain.AirlineSummary, error) {
	var w where
	if q.Origin != "" {
		w.airport("ap", q.Origin)
	}

	query := `SELECT a.name AS name, a.code AS code
FROM airlines a
JOIN airports ap ON ap.id = a.airport_id` +
		w.String() + orderBy(airlineSortColumns, q.SortBy, q.SortOrder, "a.name") + " LIMIT " + w.arg(q.Limit)

	airlines := make([]domain.AirlineSummary, 0)
	if err := r.db.SelectContext(ctx, &airlines, query, w.args...); err != nil {
		return nil, fmt.Errorf("search airlines: %w", err)
	}
	return airlines, nil
}

func (r *SQLCatalogRepository) SearchTickets(ctx context.Context, q TicketQuery) ([]domain.Ticket, error) {
	var w where
	if q.FlightID != 0 {
		w.add("t.flight_id = " + w.arg(q.FlightID))
	}
	if q.Status != "" {
		w.add("t.status = " + w.arg(string(q.Status)))
	}

	query := `SELECT t.id AS id, t.flight_id AS flight_id, f.number AS flight_number, t.seat_number AS seat_number,
	t.price AS price, t.status AS status, t.order_id AS order_id
FROM tickets t
JOIN flights f ON f.id = t.flight_id` +
		w.String() + orderBy(ticketSortColumns, q.SortBy, q.SortOrder, "t.id") + " LIMIT " + w.arg(q.Limit)

	tickets := make([]domain.Ticket, 0)
	if err := r.db.SelectContext(ctx, &tickets, query, w.args...); err != nil {
		return nil, fmt.Errorf("search tickets: %w", err)
	}
	return tickets, nil
}

var _ CatalogRepository = (*SQLCatalogRepository)(nil)
