package assistant

import (
	"time"

	"github.com/Domenick1991/airbooking/internal/domain"
	"github.com/Domenick1991/airbooking/internal/intent"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const (
	CategoryFlights = "Flights"
	CategoryTickets = "Tickets"
	CategoryOrders  = "Orders"

	categoryCountries = "Countries"
	categoryAirlines  = "Airlines"
)

const (
	msgSuccess       = "success"
	msgIntentUnknown = "intent_unknown"
	msgNoResults     = "no_results"
)

var messages = map[string]map[string]string{
	"en": {
		msgSuccess:       "Success",
		msgIntentUnknown: "Unable to understand the query. Please clarify.",
		msgNoResults:     "No results found for your query.",
	},
	"ua": {
		msgSuccess:       "Успішно",
		msgIntentUnknown: "Не вдалося зрозуміти запит. Уточніть, будь ласка.",
		msgNoResults:     "Нічого не знайдено за вашим запитом.",
	},
}

var suggestions = map[string]string{
	CategoryFlights: "Would you like to check available tickets for this flight?",
	CategoryTickets: "Would you like to place an order for this ticket?",
	CategoryOrders:  "Would you like to check the payment status of these orders?",
}

// Translate returns the message for key in lang, falling back to English and
// then to the key itself.
func Translate(key, lang string) string {
	table, ok := messages[lang]
	if !ok {
		table = messages["en"]
	}
	if msg, ok := table[key]; ok {
		return msg
	}
	return key
}

// Envelope is the uniform response body of the assistant.
type Envelope struct {
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	Data       any      `json:"data"`
	Errors     []string `json:"errors,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Refusal is returned on the tool path when an action finds nothing.
type Refusal struct {
	Action     string            `json:"action"`
	Params     map[string]string `json:"params"`
	Suggestion string            `json:"suggestion,omitempty"`
}

func Unknown(lang string, errs []string) Envelope {
	if len(errs) == 0 {
		errs = []string{"Could not infer intent"}
	}
	return Envelope{
		Status:  StatusError,
		Message: Translate(msgIntentUnknown, lang),
		Errors:  errs,
	}
}

// Shape renders an executed result. Empty results are still a success.
func Shape(lang string, res Result) Envelope {
	category := categoryOf(res.Action)
	if res.Len() == 0 {
		return Envelope{
			Status:     StatusSuccess,
			Message:    Translate(msgNoResults, lang),
			Data:       []any{},
			Suggestion: suggestions[category],
		}
	}
	return Envelope{
		Status:     StatusSuccess,
		Message:    Translate(msgSuccess, lang),
		Data:       project(res),
		Suggestion: suggestions[category],
	}
}

// Wrap shapes tool output for a category, turning empty data into a refusal.
func Wrap(category string, data any, empty bool) any {
	suggestion := suggestions[category]
	if empty {
		return Refusal{
			Action:     "refusal",
			Params:     map[string]string{"message": category + " not found."},
			Suggestion: suggestion,
		}
	}
	return Envelope{
		Status:     StatusSuccess,
		Message:    Translate(msgSuccess, "en"),
		Data:       data,
		Suggestion: suggestion,
	}
}

func categoryOf(action string) string {
	switch {
	case action == intent.ActionSearchFlights:
		return CategoryFlights
	case intent.IsTicketAction(action):
		return CategoryTickets
	case action == intent.ActionSearchCountries:
		return categoryCountries
	case action == intent.ActionSearchAirlines:
		return categoryAirlines
	default:
		return ""
	}
}

func project(res Result) any {
	switch {
	case res.Flights != nil:
		out := make([]FlightView, 0, len(res.Flights))
		for _, f := range res.Flights {
			out = append(out, NewFlightView(f))
		}
		return out
	case res.Tickets != nil:
		out := make([]TicketView, 0, len(res.Tickets))
		for _, t := range res.Tickets {
			out = append(out, NewTicketView(t))
		}
		return out
	case res.Countries != nil:
		return res.Countries
	default:
		return res.Airlines
	}
}

type TicketView struct {
	ID           int64  `json:"id"`
	SeatNumber   string `json:"seat_number"`
	Price        string `json:"price"`
	Status       string `json:"status"`
	FlightNumber string `json:"flight_number"`
}

func NewTicketView(t domain.Ticket) TicketView {
	return TicketView{
		ID:           t.ID,
		SeatNumber:   t.SeatNumber,
		Price:        t.Price.StringFixed(2),
		Status:       string(t.Status),
		FlightNumber: t.FlightNumber,
	}
}

type CountryView struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type AirportView struct {
	Name     string      `json:"name"`
	IATACode string      `json:"iata_code"`
	Country  CountryView `json:"country"`
}

type AirlineView struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type AirplaneView struct {
	Registration string      `json:"registration"`
	Model        string      `json:"model"`
	SeatsCount   int         `json:"seats_count"`
	Airline      AirlineView `json:"airline"`
}

type FlightView struct {
	Number        string       `json:"number"`
	Origin        AirportView  `json:"origin"`
	Destination   AirportView  `json:"destination"`
	DepartureTime time.Time    `json:"departure_time"`
	ArrivalTime   time.Time    `json:"arrival_time"`
	Airplane      AirplaneView `json:"airplane"`
	Status        string       `json:"status"`
}

func newAirportView(a domain.Airport) AirportView {
	return AirportView{
		Name:     a.Name,
		IATACode: a.IATACode,
		Country:  CountryView{Name: a.Country.Name, Code: a.Country.Code},
	}
}

func NewFlightView(f domain.Flight) FlightView {
	return FlightView{
		Number:        f.Number,
		Origin:        newAirportView(f.Origin),
		Destination:   newAirportView(f.Destination),
		DepartureTime: f.DepartureTime,
		ArrivalTime:   f.ArrivalTime,
		Airplane: AirplaneView{
			Registration: f.Airplane.Registration,
			Model:        f.Airplane.Model,
			SeatsCount:   f.Airplane.SeatsCount,
			Airline:      AirlineView{Name: f.Airplane.Airline.Name, Code: f.Airplane.Airline.Code},
		},
		Status: string(f.Status),
	}
}
