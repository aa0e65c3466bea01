package domain

import "time"

type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "scheduled"
	FlightStatusBoarding  FlightStatus = "boarding"
	FlightStatusDeparted  FlightStatus = "departed"
	FlightStatusDelayed   FlightStatus = "delayed"
	FlightStatusCancelled FlightStatus = "cancelled"
)

type Country struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Code string `json:"code" db:"code"`
}

type Airport struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	IATACode string  `json:"iata_code"`
	Country  Country `json:"country"`
}

type Airline struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Code    string   `json:"code"`
	Airport *Airport `json:"airport,omitempty"`
}

type Airplane struct {
	ID           int64   `json:"id"`
	Registration string  `json:"registration"`
	Model        string  `json:"model"`
	SeatsCount   int     `json:"seats_count"`
	Airline      Airline `json:"airline"`
}

type Flight struct {
	ID            int64        `json:"id"`
	Number        string       `json:"number"`
	Origin        Airport      `json:"origin"`
	Destination   Airport      `json:"destination"`
	DepartureTime time.Time    `json:"departure_time"`
	ArrivalTime   time.Time    `json:"arrival_time"`
	Airplane      Airplane     `json:"airplane"`
	Status        FlightStatus `json:"status"`
}

// CountrySummary is a destination country reachable from an airport.
type CountrySummary struct {
	CountryID   int64  `json:"country_id" db:"country_id"`
	CountryName string `json:"country_name" db:"country_name"`
	CountryCode string `json:"country_code" db:"country_code"`
}

// AirlineSummary is an airline based at an airport.
type AirlineSummary struct {
	Name string `json:"name" db:"name"`
	Code string `json:"code" db:"code"`
}
