package intent

import (
	"regexp"
	"strings"
	"time"
)

var (
	routeRe          = regexp.MustCompile(`from ([a-zA-Z\s]+?) to ([a-zA-Z\s]+?)(?:\s|$)`)
	ukrainianRouteRe = regexp.MustCompile(`(?:^|\s)(?:з|із) (\p{L}[\p{L}\s]*?) до (\p{L}[\p{L}\s]*?)(?:\s|$)`)
)

// sortable lists, per action, the columns a result may be ordered by.
var sortable = map[string][]string{
	ActionSearchFlights:          {"departure_time", "arrival_time", "number"},
	ActionSearchCountries:        {"country_name", "country_code"},
	ActionSearchAirlines:         {"name", "code"},
	ActionSearchTickets:          {"price", "seat_number"},
	ActionSearchAvailableTickets: {"price", "seat_number"},
	ActionSearchBookedTickets:    {"price", "seat_number"},
}

// Mapper normalises an extracted Intent into an executable action.
type Mapper struct {
	MaxLimit int
}

func NewMapper(maxLimit int) *Mapper {
	return &Mapper{MaxLimit: maxLimit}
}

// Map re-reads the original prompt for routes and relative dates, then picks
// the final action. Keywords in the prompt take precedence over the action the
// extractor chose. The Intent itself is left untouched.
func (m *Mapper) Map(in *Intent, now time.Time) (string, QueryParams) {
	params := QueryParams{
		Filters: make(map[string]string, len(in.Filters)),
		Fields:  append([]string{}, in.Fields...),
		Sort:    in.Sort,
		Limit:   in.Limit,
	}
	for k, v := range in.Filters {
		if v != "" {
			params.Filters[k] = v
		}
	}

	text := strings.ToLower(in.Prompt)

	if origin, destination, ok := findRoute(text); ok {
		params.Filters[FilterOrigin] = origin
		params.Filters[FilterDestination] = destination
	}
	if date, ok := relativeDate(text, now); ok {
		params.Filters[FilterDate] = date
	}

	action, ok := classify(text)
	if !ok {
		action = ActionUnknown
		if IsKnownAction(in.Action) {
			action = in.Action
		}
	}

	params.Limit = m.clampLimit(params.Limit)
	params.Sort = normaliseSort(action, params.Sort)
	return action, params
}

func findRoute(text string) (string, string, bool) {
	match := routeRe.FindStringSubmatch(text)
	if match == nil {
		match = ukrainianRouteRe.FindStringSubmatch(text)
	}
	if match == nil {
		return "", "", false
	}
	origin := stripRelativeWords(match[1])
	destination := stripRelativeWords(match[2])
	if origin == "" || destination == "" {
		return "", "", false
	}
	return titleCaser.String(origin), titleCaser.String(destination), true
}

// Normalise bounds the limit and sort of parameters supplied by a caller
// rather than derived from a prompt.
func (m *Mapper) Normalise(action string, p QueryParams) QueryParams {
	filters := make(map[string]string, len(p.Filters))
	for k, v := range p.Filters {
		if v != "" {
			filters[k] = v
		}
	}
	return QueryParams{
		Filters: filters,
		Fields:  append([]string{}, p.Fields...),
		Sort:    normaliseSort(action, p.Sort),
		Limit:   m.clampLimit(p.Limit),
	}
}

func (m *Mapper) clampLimit(limit int) int {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if m.MaxLimit > 0 && limit > m.MaxLimit {
		limit = m.MaxLimit
	}
	return limit
}

func normaliseSort(action string, s Sort) Sort {
	if s.By == "" {
		return Sort{}
	}
	allowed := false
	for _, col := range sortable[action] {
		if col == s.By {
			allowed = true
			break
		}
	}
	if !allowed {
		return Sort{}
	}
	order := strings.ToLower(s.Order)
	if order != "desc" {
		order = "asc"
	}
	return Sort{By: s.By, Order: order}
}
