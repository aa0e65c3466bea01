package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/Domenick1991/airbooking/internal/intent"
	"github.com/Domenick1991/airbooking/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) SearchFlights(ctx context.Context, q repository.FlightQuery) ([]domain.Flight, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockCatalog) CountriesFromOrigin(ctx context.Context, q repository.CountryQuery) ([]domain.CountrySummary, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CountrySummary), args.Error(1)
}

func (m *MockCatalog) AirlinesFromAirport(ctx context.Context, q repository.AirlineQuery) ([]domain.AirlineSummary, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AirlineSummary), args.Error(1)
}

func (m *MockCatalog) SearchTickets(ctx context.Context, q repository.TicketQuery) ([]domain.Ticket, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

type MockQueryCache struct {
	mock.Mock
}

func (m *MockQueryCache) GetQuery(ctx context.Context, key string, dest any) (bool, error) {
	args := m.Called(ctx, key, dest)
	return args.Bool(0), args.Error(1)
}

func (m *MockQueryCache) SetQuery(ctx context.Context, key string, value any) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, prompt, lang string) (*intent.Intent, error) {
	args := m.Called(ctx, prompt, lang)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*intent.Intent), args.Error(1)
}

var (
	kyiv    = time.FixedZone("EEST", 3*60*60)
	testNow = time.Date(2025, time.June, 10, 15, 30, 0, 0, kyiv)
)

func sampleFlight() domain.Flight {
	dep := time.Date(2025, time.June, 11, 8, 0, 0, 0, kyiv)
	return domain.Flight{
		ID:            1,
		Number:        "PS123",
		Origin:        domain.Airport{ID: 10, Name: "Lviv Danylo Halytskyi", IATACode: "LWO", Country: domain.Country{Name: "Ukraine", Code: "UA"}},
		Destination:   domain.Airport{ID: 11, Name: "Krakow John Paul II", IATACode: "KRK", Country: domain.Country{Name: "Poland", Code: "PL"}},
		DepartureTime: dep,
		ArrivalTime:   dep.Add(time.Hour),
		Airplane: domain.Airplane{
			Registration: "UR-PSA",
			Model:        "Boeing 737",
			SeatsCount:   180,
			Airline:      domain.Airline{Name: "Ukraine International", Code: "PS"},
		},
		Status: domain.FlightStatusScheduled,
	}
}

func newTestService(extractor intent.Extractor, catalog repository.CatalogRepository, cache QueryCache) *Service {
	exec := NewExecutor(catalog, cache, kyiv, "LWO", zap.NewNop())
	s := NewService(extractor, intent.NewMapper(100), exec, kyiv, zap.NewNop())
	s.now = func() time.Time { return testNow }
	return s
}

func ruleExtractor() intent.Extractor {
	return intent.NewRuleExtractor("LWO", intent.WithClock(func() time.Time { return testNow }))
}

func TestService_LvivKrakowTomorrow(t *testing.T) {
	catalog := &MockCatalog{}
	s := newTestService(ruleExtractor(), catalog, nil)
	ctx := context.Background()

	from := time.Date(2025, time.June, 11, 0, 0, 0, 0, kyiv)
	catalog.On("SearchFlights", ctx, repository.FlightQuery{
		Origin:      "Lviv",
		Destination: "Krakow",
		Day:         &repository.DayRange{From: from, To: from.AddDate(0, 0, 1)},
		SortBy:      "departure_time",
		SortOrder:   "asc",
		Limit:       20,
	}).Return([]domain.Flight{sampleFlight()}, nil).Once()

	env, err := s.Query(ctx, "Show flights from Lviv to Krakow tomorrow", "")
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, env.Status)
	assert.Equal(t, "Success", env.Message)
	assert.Equal(t, suggestions[CategoryFlights], env.Suggestion)

	views, ok := env.Data.([]FlightView)
	require.True(t, ok)
	require.Len(t, views, 1)
	assert.Equal(t, "PS123", views[0].Number)
	assert.Equal(t, "KRK", views[0].Destination.IATACode)
	assert.Equal(t, "Poland", views[0].Destination.Country.Name)
	assert.Equal(t, "PS", views[0].Airplane.Airline.Code)

	catalog.AssertExpectations(t)
}

func TestService_EmptyPrompt(t *testing.T) {
	extractor := &MockExtractor{}
	s := newTestService(extractor, &MockCatalog{}, nil)

	for _, prompt := range []string{"", "   \n\t"} {
		_, err := s.Query(context.Background(), prompt, "en")
		var vErr *domain.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "Empty prompt", vErr.Message)
	}
	extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_UnknownPrompt(t *testing.T) {
	catalog := &MockCatalog{}
	s := newTestService(ruleExtractor(), catalog, nil)

	for _, tc := range []struct {
		prompt  string
		message string
	}{
		{"What is the weather like?", "Unable to understand the query. Please clarify."},
		{"Яка сьогодні погода у Києві?", "Не вдалося зрозуміти запит. Уточніть, будь ласка."},
	} {
		env, err := s.Query(context.Background(), tc.prompt, "")
		require.NoError(t, err)
		assert.Equal(t, StatusError, env.Status)
		assert.Equal(t, tc.message, env.Message)
		assert.Equal(t, []string{"Could not infer intent"}, env.Errors)
		assert.Nil(t, env.Data)
	}
	catalog.AssertNotCalled(t, "SearchFlights", mock.Anything, mock.Anything)
}

func TestService_ExtractionFailure(t *testing.T) {
	extractor := &MockExtractor{}
	s := newTestService(extractor, &MockCatalog{}, nil)
	ctx := context.Background()

	oracleErr := &domain.ExtractionError{Err: context.DeadlineExceeded}
	extractor.On("Extract", ctx, "flights to Rome", "en").Return(nil, oracleErr).Once()

	_, err := s.Query(ctx, "flights to Rome", "en")
	var exErr *domain.ExtractionError
	assert.True(t, errors.As(err, &exErr))
}

func TestService_NoResults(t *testing.T) {
	catalog := &MockCatalog{}
	s := newTestService(ruleExtractor(), catalog, nil)
	ctx := context.Background()

	catalog.On("SearchTickets", ctx, repository.TicketQuery{FlightID: 7, Status: domain.TicketStatusAvailable, Limit: 20}).
		Return([]domain.Ticket{}, nil).Once()

	env, err := s.Query(ctx, "Show available tickets for flight 7", "")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, env.Status)
	assert.Equal(t, "No results found for your query.", env.Message)
	assert.Equal(t, []any{}, env.Data)
	assert.Equal(t, suggestions[CategoryTickets], env.Suggestion)

	body, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"data":[]`)
}

func TestService_CountriesReturnedRaw(t *testing.T) {
	catalog := &MockCatalog{}
	s := newTestService(ruleExtractor(), catalog, nil)
	ctx := context.Background()

	countries := []domain.CountrySummary{{CountryID: 1, CountryName: "Poland", CountryCode: "PL"}}
	catalog.On("CountriesFromOrigin", ctx, repository.CountryQuery{Origin: "LWO", Limit: 20}).Return(countries, nil).Once()

	env, err := s.Query(ctx, "Which countries can I fly to?", "")
	require.NoError(t, err)
	assert.Equal(t, countries, env.Data)
	assert.Empty(t, env.Suggestion)
}

func TestService_DatabaseError(t *testing.T) {
	catalog := &MockCatalog{}
	s := newTestService(ruleExtractor(), catalog, nil)

	catalog.On("AirlinesFromAirport", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Once()

	_, err := s.Query(context.Background(), "List airlines from Kyiv", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "execute search_airlines_from_airport")
}

func TestService_RunAction(t *testing.T) {
	catalog := &MockCatalog{}
	s := newTestService(ruleExtractor(), catalog, nil)
	ctx := context.Background()

	t.Run("Refusal on empty", func(t *testing.T) {
		catalog.On("SearchTickets", ctx, repository.TicketQuery{FlightID: 3, Status: domain.TicketStatusBooked, Limit: 100}).
			Return([]domain.Ticket{}, nil).Once()

		out, err := s.RunAction(ctx, intent.ActionSearchBookedTickets, intent.QueryParams{
			Filters: map[string]string{intent.FilterFlightID: "3"},
			Limit:   1000,
		}, "en")
		require.NoError(t, err)
		assert.Equal(t, Refusal{
			Action:     "refusal",
			Params:     map[string]string{"message": "Tickets not found."},
			Suggestion: suggestions[CategoryTickets],
		}, out)
	})

	t.Run("Envelope with data", func(t *testing.T) {
		catalog.On("SearchTickets", ctx, repository.TicketQuery{Limit: 20}).
			Return([]domain.Ticket{{ID: 1, SeatNumber: "1A", Price: decimal.RequireFromString("99.5"), Status: domain.TicketStatusAvailable, FlightNumber: "PS1"}}, nil).Once()

		out, err := s.RunAction(ctx, intent.ActionSearchTickets, intent.QueryParams{}, "en")
		require.NoError(t, err)
		env, ok := out.(Envelope)
		require.True(t, ok)
		views := env.Data.([]TicketView)
		assert.Equal(t, "99.50", views[0].Price)
	})

	t.Run("Unsupported action", func(t *testing.T) {
		_, err := s.RunAction(ctx, "drop_tables", intent.QueryParams{}, "en")
		var vErr *domain.ValidationError
		assert.True(t, errors.As(err, &vErr))
	})
}

func TestExecutor_Filters(t *testing.T) {
	ctx := context.Background()

	t.Run("Malformed date is ignored", func(t *testing.T) {
		catalog := &MockCatalog{}
		e := NewExecutor(catalog, nil, kyiv, "LWO", zap.NewNop())
		catalog.On("SearchFlights", ctx, repository.FlightQuery{Origin: "Rome", Limit: 5}).Return([]domain.Flight{}, nil).Once()

		_, err := e.Execute(ctx, intent.ActionSearchFlights, intent.QueryParams{
			Filters: map[string]string{intent.FilterOrigin: "Rome", intent.FilterDate: "2025-02-30"},
			Limit:   5,
		})
		assert.NoError(t, err)
		catalog.AssertExpectations(t)
	})

	t.Run("Malformed flight id is ignored", func(t *testing.T) {
		catalog := &MockCatalog{}
		e := NewExecutor(catalog, nil, kyiv, "LWO", zap.NewNop())
		catalog.On("SearchTickets", ctx, repository.TicketQuery{Limit: 5}).Return([]domain.Ticket{}, nil).Once()

		_, err := e.Execute(ctx, intent.ActionSearchTickets, intent.QueryParams{
			Filters: map[string]string{intent.FilterFlightID: "abc"},
			Limit:   5,
		})
		assert.NoError(t, err)
		catalog.AssertExpectations(t)
	})

	t.Run("Airlines default to hub", func(t *testing.T) {
		catalog := &MockCatalog{}
		e := NewExecutor(catalog, nil, kyiv, "LWO", zap.NewNop())
		catalog.On("AirlinesFromAirport", ctx, repository.AirlineQuery{Origin: "LWO", Limit: 5}).Return([]domain.AirlineSummary{}, nil).Once()

		_, err := e.Execute(ctx, intent.ActionSearchAirlines, intent.QueryParams{Filters: map[string]string{}, Limit: 5})
		assert.NoError(t, err)
		catalog.AssertExpectations(t)
	})

	t.Run("Unknown action", func(t *testing.T) {
		catalog := &MockCatalog{}
		e := NewExecutor(catalog, nil, kyiv, "LWO", zap.NewNop())

		res, err := e.Execute(ctx, intent.ActionUnknown, intent.QueryParams{})
		assert.NoError(t, err)
		assert.Zero(t, res.Len())
	})
}

func TestExecutor_Cache(t *testing.T) {
	ctx := context.Background()
	params := intent.QueryParams{Filters: map[string]string{intent.FilterOrigin: "KBP"}, Limit: 20}
	key := cacheKey(intent.ActionSearchCountries, params)

	t.Run("Hit skips database", func(t *testing.T) {
		catalog := &MockCatalog{}
		cache := &MockQueryCache{}
		e := NewExecutor(catalog, cache, kyiv, "LWO", zap.NewNop())

		cache.On("GetQuery", ctx, key, mock.Anything).Run(func(args mock.Arguments) {
			dest := args.Get(2).(*[]domain.CountrySummary)
			*dest = []domain.CountrySummary{{CountryID: 2, CountryName: "Spain", CountryCode: "ES"}}
		}).Return(true, nil).Once()

		res, err := e.Execute(ctx, intent.ActionSearchCountries, params)
		require.NoError(t, err)
		assert.Equal(t, "Spain", res.Countries[0].CountryName)
		catalog.AssertNotCalled(t, "CountriesFromOrigin", mock.Anything, mock.Anything)
	})

	t.Run("Broken cache falls through", func(t *testing.T) {
		catalog := &MockCatalog{}
		cache := &MockQueryCache{}
		e := NewExecutor(catalog, cache, kyiv, "LWO", zap.NewNop())

		rows := []domain.CountrySummary{{CountryID: 1, CountryName: "Poland", CountryCode: "PL"}}
		cache.On("GetQuery", ctx, key, mock.Anything).Return(false, errors.New("redis down")).Once()
		catalog.On("CountriesFromOrigin", ctx, repository.CountryQuery{Origin: "KBP", Limit: 20}).Return(rows, nil).Once()
		cache.On("SetQuery", ctx, key, rows).Return(errors.New("redis down")).Once()

		res, err := e.Execute(ctx, intent.ActionSearchCountries, params)
		require.NoError(t, err)
		assert.Equal(t, rows, res.Countries)
		cache.AssertExpectations(t)
	})

	t.Run("Tickets are never cached", func(t *testing.T) {
		catalog := &MockCatalog{}
		cache := &MockQueryCache{}
		e := NewExecutor(catalog, cache, kyiv, "LWO", zap.NewNop())

		catalog.On("SearchTickets", ctx, repository.TicketQuery{Limit: 20}).Return([]domain.Ticket{}, nil).Once()

		_, err := e.Execute(ctx, intent.ActionSearchTickets, intent.QueryParams{Limit: 20})
		require.NoError(t, err)
		cache.AssertNotCalled(t, "GetQuery", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTranslate(t *testing.T) {
	assert.Equal(t, "Успішно", Translate(msgSuccess, "ua"))
	assert.Equal(t, "Success", Translate(msgSuccess, "de"))
	assert.Equal(t, "missing_key", Translate("missing_key", "en"))
}

func TestWrap(t *testing.T) {
	out := Wrap(CategoryOrders, []int{1}, false)
	env, ok := out.(Envelope)
	require.True(t, ok)
	assert.Equal(t, suggestions[CategoryOrders], env.Suggestion)

	refusal, ok := Wrap(CategoryOrders, nil, true).(Refusal)
	require.True(t, ok)
	assert.Equal(t, "Orders not found.", refusal.Params["message"])
}
