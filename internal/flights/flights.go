// Package flights looks up flight options for travel requests.
package flights

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoFlights is returned when a search finds nothing for the route.
var ErrNoFlights = errors.New("no flights found")

type Flight struct {
	Airline       string `json:"airline" yaml:"airline" mapstructure:"airline"`
	FlightNumber  string `json:"flight_number" yaml:"flight_number" mapstructure:"flight_number"`
	Price         string `json:"price" yaml:"price" mapstructure:"price"`
	DepartureTime string `json:"departure_time" yaml:"departure_time" mapstructure:"departure_time"`
	ArrivalTime   string `json:"arrival_time,omitempty" yaml:"arrival_time" mapstructure:"arrival_time"`
	Duration      string `json:"duration" yaml:"duration" mapstructure:"duration"`
	Route         string `json:"route" yaml:"route" mapstructure:"route"`
	Stops         int    `json:"stops" yaml:"stops" mapstructure:"stops"`
	BookingURL    string `json:"booking_url,omitempty" yaml:"booking_url" mapstructure:"booking_url"`
	Source        string `json:"source" yaml:"source" mapstructure:"source"`
}

type Query struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	// Date is formatted as YYYY-MM-DD.
	Date string `json:"date"`
}

func (q Query) key() string {
	return strings.ToLower(fmt.Sprintf("%s|%s|%s", strings.TrimSpace(q.Origin), strings.TrimSpace(q.Destination), q.Date))
}

func (q Query) route() string {
	return fmt.Sprintf("%s → %s", q.Origin, q.Destination)
}

type Searcher interface {
	Search(ctx context.Context, q Query) ([]Flight, error)
}

// FormatPrice renders an amount the way fares are shown to users, e.g. ₹12,345.
func FormatPrice(amount int, currency string) string {
	symbol := currency + " "
	switch strings.ToUpper(currency) {
	case "", "INR":
		symbol = "₹"
	case "USD":
		symbol = "$"
	}

	negative := amount < 0
	if negative {
		amount = -amount
	}

	digits := fmt.Sprintf("%d", amount)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	if negative {
		return "-" + symbol + b.String()
	}
	return symbol + b.String()
}

// FormatDuration renders minutes as "2h 15m".
func FormatDuration(minutes int) string {
	if minutes <= 0 {
		return ""
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
