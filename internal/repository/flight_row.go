package repository

import (
	"time"

	"github.com/Domenick1991/airbooking/internal/domain"
)

// flightSelect joins a flight with its airports, countries, airplane and
// airline. Aliases match flightRow's db tags for both pgx and sqlx scanning.
const flightSelect = `SELECT
	f.id AS id, f.number AS number, f.departure_time AS departure_time, f.arrival_time AS arrival_time, f.status AS status,
	o.id AS origin_id, o.name AS origin_name, o.iata_code AS origin_iata,
	oc.id AS origin_country_id, oc.name AS origin_country_name, oc.code AS origin_country_code,
	d.id AS destination_id, d.name AS destination_name, d.iata_code AS destination_iata,
	dc.id AS destination_country_id, dc.name AS destination_country_name, dc.code AS destination_country_code,
	p.id AS airplane_id, p.registration AS airplane_registration, p.model AS airplane_model, p.seats_count AS airplane_seats,
	a.id AS airline_id, a.name AS airline_name, a.code AS airline_code
FROM flights f
JOIN airports o ON o.id = f.origin_id
JOIN countries oc ON oc.id = o.country_id
JOIN airports d ON d.id = f.destination_id
JOIN countries dc ON dc.id = d.country_id
JOIN airplanes p ON p.id = f.airplane_id
JOIN airlines a ON a.id = p.airline_id`

type flightRow struct {
	ID                     int64               `db:"id"`
	Number                 string              `db:"number"`
	DepartureTime          time.Time           `db:"departure_time"`
	ArrivalTime            time.Time           `db:"arrival_time"`
	Status                 domain.FlightStatus `db:"status"`
	OriginID               int64               `db:"origin_id"`
	OriginName             string              `db:"origin_name"`
	OriginIATA             string              `db:"origin_iata"`
	OriginCountryID        int64               `db:"origin_country_id"`
	OriginCountryName      string              `db:"origin_country_name"`
	OriginCountryCode      string              `db:"origin_country_code"`
	DestinationID          int64               `db:"destination_id"`
	DestinationName        string              `db:"destination_name"`
	DestinationIATA        string              `db:"destination_iata"`
	DestinationCountryID   int64               `db:"destination_country_id"`
	DestinationCountryName string              `db:"destination_country_name"`
	DestinationCountryCode string              `db:"destination_country_code"`
	AirplaneID             int64               `db:"airplane_id"`
	AirplaneRegistration   string              `db:"airplane_registration"`
	AirplaneModel          string              `db:"airplane_model"`
	AirplaneSeats          int                 `db:"airplane_seats"`
	AirlineID              int64               `db:"airline_id"`
	AirlineName            string              `db:"airline_name"`
	AirlineCode            string              `db:"airline_code"`
}

func (r flightRow) toDomain() domain.Flight {
	return domain.Flight{
		ID:     r.ID,
		Number: r.Number,
		Origin: domain.Airport{
			ID:       r.OriginID,
			Name:     r.OriginName,
			IATACode: r.OriginIATA,
			Country:  domain.Country{ID: r.OriginCountryID, Name: r.OriginCountryName, Code: r.OriginCountryCode},
		},
		Destination: domain.Airport{
			ID:       r.DestinationID,
			Name:     r.DestinationName,
			IATACode: r.DestinationIATA,
			Country:  domain.Country{ID: r.DestinationCountryID, Name: r.DestinationCountryName, Code: r.DestinationCountryCode},
		},
		DepartureTime: r.DepartureTime,
		ArrivalTime:   r.ArrivalTime,
		Airplane: domain.Airplane{
			ID:           r.AirplaneID,
			Registration: r.AirplaneRegistration,
			Model:        r.AirplaneModel,
			SeatsCount:   r.AirplaneSeats,
			Airline:      domain.Airline{ID: r.AirlineID, Name: r.AirlineName, Code: r.AirlineCode},
		},
		Status: r.Status,
	}
}

func flightsFromRows(rows []flightRow) []domain.Flight {
	flights := make([]domain.Flight, 0, len(rows))
	for _, r := range rows {
		flights = append(flights, r.toDomain())
	}
	return flights
}
