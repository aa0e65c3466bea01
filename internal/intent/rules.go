package intent

import (
	"context"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	originEntityRe = regexp.MustCompile(`(?:^|\s)(?:from|з|із) (\p{L}+)`)
	flightIDRe     = regexp.MustCompile(`(?:flight|рейс\p{L}*)\s+(?:id\s*)?#?(\d+)\b`)
)

var titleCaser = cases.Title(language.Und)

// RuleExtractor is the keyword-driven extractor used when no model is
// configured. Its output depends only on the prompt and its clock.
type RuleExtractor struct {
	// HubCode is the default origin for country and airline questions.
	HubCode string
	// ReferenceYear pins explicit dates to a year. Zero means the current
	// year, rolling over to the next one for dates already past.
	ReferenceYear int
	Now           func() time.Time
}

type RuleOption func(*RuleExtractor)

func WithReferenceYear(year int) RuleOption {
	return func(r *RuleExtractor) {
		r.ReferenceYear = year
	}
}

func WithClock(now func() time.Time) RuleOption {
	return func(r *RuleExtractor) {
		r.Now = now
	}
}

func NewRuleExtractor(hubCode string, opts ...RuleOption) *RuleExtractor {
	r := &RuleExtractor{HubCode: hubCode, Now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RuleExtractor) Extract(_ context.Context, prompt, _ string) (*Intent, error) {
	lower := strings.ToLower(prompt)

	action, ok := classify(lower)
	if !ok {
		return unknownIntent(prompt, "Could not infer intent"), nil
	}

	in := &Intent{
		Action:  action,
		Filters: map[string]string{},
		Fields:  defaultFields(action),
		Limit:   DefaultLimit,
		Errors:  []string{},
		Prompt:  prompt,
	}

	if md, found := findMonthDay(lower); found {
		if date, valid := md.resolve(r.now(), r.ReferenceYear); valid {
			in.Filters[FilterDate] = date
		}
	}

	switch action {
	case ActionSearchFlights:
		in.Sort = Sort{By: "departure_time", Order: "asc"}
	case ActionSearchCountries, ActionSearchAirlines:
		in.Filters[FilterOrigin] = r.HubCode
		if m := originEntityRe.FindStringSubmatch(lower); m != nil {
			in.Filters[FilterOrigin] = titleCaser.String(m[1])
		}
	case ActionSearchTickets, ActionSearchAvailableTickets, ActionSearchBookedTickets:
		if m := flightIDRe.FindStringSubmatch(lower); m != nil {
			in.Filters[FilterFlightID] = m[1]
		}
	}
	return in, nil
}

func (r *RuleExtractor) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func defaultFields(action string) []string {
	switch action {
	case ActionSearchBookedTickets:
		return []string{"seat_number", "price", "order_id"}
	case ActionSearchAvailableTickets:
		return []string{"seat_number", "price"}
	case ActionSearchTickets:
		return []string{"seat_number", "status", "price"}
	case ActionSearchCountries:
		return []string{"country_name", "country_code"}
	case ActionSearchAirlines:
		return []string{"airline_name", "airline_code"}
	default:
		return []string{}
	}
}

var _ Extractor = (*RuleExtractor)(nil)
