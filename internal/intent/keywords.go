package intent

import "strings"

type keywordRule struct {
	action string
	match  func(text string) bool
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func mentionsTicket(text string) bool {
	return containsAny(text, "ticket", "квит")
}

// keywordRules is evaluated top to bottom; the first match wins. Text must be
// lower-cased before matching.
var keywordRules = []keywordRule{
	{ActionSearchBookedTickets, func(text string) bool {
		return (strings.Contains(text, "booked") && strings.Contains(text, "ticket")) ||
			(strings.Contains(text, "заброньован") && strings.Contains(text, "квит"))
	}},
	{ActionSearchAvailableTickets, func(text string) bool {
		return (strings.Contains(text, "available") && strings.Contains(text, "ticket")) ||
			(strings.Contains(text, "вільн") && strings.Contains(text, "квит"))
	}},
	{ActionSearchTickets, mentionsTicket},
	{ActionSearchFlights, func(text string) bool {
		return containsAny(text, "flight", "рейс", "польот", "переліт")
	}},
	{ActionSearchCountries, func(text string) bool {
		return containsAny(text, "countr", "країн")
	}},
	{ActionSearchAirlines, func(text string) bool {
		return containsAny(text, "airline", "авіакомпан")
	}},
}

// classify returns the action implied by keywords in text, if any.
func classify(text string) (string, bool) {
	for _, r := range keywordRules {
		if r.match(text) {
			return r.action, true
		}
	}
	return "", false
}
