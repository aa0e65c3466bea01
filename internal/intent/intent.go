// Package intent turns free-form travel questions into whitelisted query
// actions with bounded parameters.
package intent

import (
	"context"
	"strings"
)

const (
	ActionSearchFlights          = "search_flights"
	ActionSearchCountries        = "search_countries_from_origin"
	ActionSearchAirlines         = "search_airlines_from_airport"
	ActionSearchTickets          = "search_tickets"
	ActionSearchAvailableTickets = "search_available_tickets"
	ActionSearchBookedTickets    = "search_booked_tickets"
	ActionUnknown                = "unknown"
)

const (
	FilterOrigin      = "origin"
	FilterDestination = "destination"
	FilterDate        = "date"
	FilterFlightID    = "flight_id"
)

const (
	DefaultLimit = 20
	DateLayout   = "2006-01-02"
)

var whitelist = map[string]struct{}{
	ActionSearchFlights:          {},
	ActionSearchCountries:        {},
	ActionSearchAirlines:         {},
	ActionSearchTickets:          {},
	ActionSearchAvailableTickets: {},
	ActionSearchBookedTickets:    {},
}

// IsKnownAction reports whether action is one of the executable query actions.
func IsKnownAction(action string) bool {
	_, ok := whitelist[action]
	return ok
}

func IsTicketAction(action string) bool {
	return action == ActionSearchTickets || action == ActionSearchAvailableTickets || action == ActionSearchBookedTickets
}

type Sort struct {
	By    string `json:"by,omitempty"`
	Order string `json:"order,omitempty"`
}

// Intent is the structured reading of a single prompt. Action is always a
// whitelisted action or ActionUnknown, and ActionUnknown carries Errors.
type Intent struct {
	Action  string            `json:"action"`
	Filters map[string]string `json:"filters"`
	Fields  []string          `json:"fields"`
	Limit   int               `json:"limit"`
	Sort    Sort              `json:"sort"`
	Errors  []string          `json:"errors"`
	Prompt  string            `json:"-"`
}

func unknownIntent(prompt string, reason string) *Intent {
	return &Intent{
		Action:  ActionUnknown,
		Filters: map[string]string{},
		Fields:  []string{},
		Limit:   DefaultLimit,
		Errors:  []string{reason},
		Prompt:  prompt,
	}
}

// QueryParams are the normalised parameters handed to the executor.
type QueryParams struct {
	Filters map[string]string `json:"filters"`
	Fields  []string          `json:"fields"`
	Sort    Sort              `json:"sort"`
	Limit   int               `json:"limit"`
}

// Extractor reads a prompt into an Intent. Implementations backed by a remote
// model return *domain.ExtractionError when the model fails.
type Extractor interface {
	Extract(ctx context.Context, prompt, lang string) (*Intent, error)
}

// Streamer is implemented by extractors that can also stream a free-form
// answer, used by the chat transport.
type Streamer interface {
	Stream(ctx context.Context, prompt string, fn func(chunk string) error) error
}

const ukrainianLetters = "іїєґ"

// DetectLanguage returns "ua" when the text contains a letter specific to
// Ukrainian, "en" otherwise.
func DetectLanguage(text string) string {
	if strings.ContainsAny(strings.ToLower(text), ukrainianLetters) {
		return "ua"
	}
	return "en"
}
