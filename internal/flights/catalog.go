package flights

import (
	"context"
	_ "embed"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog serves fares from static data. It backs up live search when the
// provider is unavailable.
type Catalog struct {
	Currency  string           `yaml:"currency"`
	BasePrice int              `yaml:"base_price"`
	Source    string           `yaml:"source"`
	Airlines  []CatalogAirline `yaml:"airlines"`
	Routes    []CatalogRoute   `yaml:"routes"`
}

type CatalogAirline struct {
	Name            string  `yaml:"name"`
	Code            string  `yaml:"code"`
	PriceFactor     float64 `yaml:"price_factor"`
	DepartureTime   string  `yaml:"departure_time"`
	DurationMinutes int     `yaml:"duration_minutes"`
}

type CatalogRoute struct {
	Origin      string `yaml:"origin"`
	Destination string `yaml:"destination"`
	BasePrice   int    `yaml:"base_price"`
}

// DefaultCatalog returns the built-in fallback fares.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flight catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse flight catalog: %w", err)
	}
	if len(c.Airlines) == 0 {
		return nil, fmt.Errorf("flight catalog has no airlines")
	}
	if c.BasePrice <= 0 {
		return nil, fmt.Errorf("flight catalog base_price must be positive")
	}
	if c.Source == "" {
		c.Source = "Fallback Data"
	}
	return &c, nil
}

func (c *Catalog) Search(ctx context.Context, q Query) ([]Flight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base := c.basePrice(q)
	flights := make([]Flight, 0, len(c.Airlines))
	for _, airline := range c.Airlines {
		factor := airline.PriceFactor
		if factor <= 0 {
			factor = 1
		}

		flights = append(flights, Flight{
			Airline:       airline.Name,
			FlightNumber:  fmt.Sprintf("%s-%d", airline.Code, flightNumber(airline.Code, q)),
			Price:         FormatPrice(int(math.Round(float64(base)*factor)), c.Currency),
			DepartureTime: airline.DepartureTime,
			Duration:      FormatDuration(airline.DurationMinutes),
			Route:         q.route(),
			Source:        c.Source,
		})
	}

	return flights, nil
}

func (c *Catalog) basePrice(q Query) int {
	for _, r := range c.Routes {
		if strings.EqualFold(r.Origin, q.Origin) && strings.EqualFold(r.Destination, q.Destination) && r.BasePrice > 0 {
			return r.BasePrice
		}
	}
	return c.BasePrice
}

// flightNumber derives a stable three digit number for a route and date.
func flightNumber(code string, q Query) uint32 {
	h := fnv.New32a()
	h.Write([]byte(code + "|" + q.key()))
	return 100 + h.Sum32()%900
}
