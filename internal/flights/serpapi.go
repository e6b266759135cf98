package flights

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const (
	serpAPIURL      = "https://serpapi.com/search"
	serpAPIEngine   = "google_flights"
	serpAPISource   = "Google Flights (SerpAPI)"
	userAgent       = "spigell/navihire"
	contentEncoding = "gzip"
	// SerpAPI type 2 is a one-way trip.
	oneWayTrip = "2"
	maxResults = 6
)

// airportCodes maps common city names to IATA codes for the search API.
var airportCodes = map[string]string{
	"delhi":     "DEL",
	"new delhi": "DEL",
	"mumbai":    "BOM",
	"bangalore": "BLR",
	"bengaluru": "BLR",
	"chennai":   "MAA",
	"kolkata":   "CCU",
	"hyderabad": "HYD",
	"pune":      "PNQ",
	"ahmedabad": "AMD",
	"goa":       "GOI",
	"jaipur":    "JAI",
	"kochi":     "COK",
	"lucknow":   "LKO",
	"dubai":     "DXB",
	"singapore": "SIN",
	"london":    "LHR",
	"new york":  "JFK",
}

// AirportCode returns the IATA code for a city, or the input upper-cased when
// it already looks like a code.
func AirportCode(city string) string {
	city = strings.TrimSpace(city)
	if code, ok := airportCodes[strings.ToLower(city)]; ok {
		return code
	}
	return strings.ToUpper(city)
}

// SerpAPI queries Google Flights through serpapi.com.
type SerpAPI struct {
	apiKey     string
	currency   string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
	UserAgent  string
}

func NewSerpAPI(apiKey, currency string, logger *zap.Logger) *SerpAPI {
	if logger == nil {
		logger = zap.NewNop()
	}
	if currency == "" {
		currency = "INR"
	}
	return &SerpAPI{
		apiKey:   apiKey,
		currency: currency,
		logger:   logger,
		HTTPClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		APIURL:    serpAPIURL,
		UserAgent: userAgent,
	}
}

type serpResponse struct {
	Error        string           `json:"error"`
	BestFlights  []map[string]any `json:"best_flights"`
	OtherFlights []map[string]any `json:"other_flights"`
}

type serpOffer struct {
	Segments      []serpSegment `mapstructure:"flights"`
	TotalDuration int           `mapstructure:"total_duration"`
	Price         int           `mapstructure:"price"`
	BookingToken  string        `mapstructure:"booking_token"`
}

type serpSegment struct {
	Airline      string       `mapstructure:"airline"`
	FlightNumber string       `mapstructure:"flight_number"`
	Departure    serpEndpoint `mapstructure:"departure_airport"`
	Arrival      serpEndpoint `mapstructure:"arrival_airport"`
}

type serpEndpoint struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
	Time string `mapstructure:"time"`
}

func (s *SerpAPI) Search(ctx context.Context, q Query) ([]Flight, error) {
	if strings.TrimSpace(s.apiKey) == "" {
		return nil, errors.New("serpapi key is not configured")
	}

	params := url.Values{}
	params.Set("engine", serpAPIEngine)
	params.Set("departure_id", AirportCode(q.Origin))
	params.Set("arrival_id", AirportCode(q.Destination))
	params.Set("outbound_date", q.Date)
	params.Set("type", oneWayTrip)
	params.Set("currency", s.currency)
	params.Set("hl", "en")
	params.Set("api_key", s.apiKey)

	var response serpResponse
	if err := s.getJSON(ctx, s.APIURL, params, &response); err != nil {
		return nil, fmt.Errorf("search flights: %w", err)
	}

	if response.Error != "" {
		return nil, fmt.Errorf("search flights: %s", response.Error)
	}

	var offers []serpOffer
	items := append(response.BestFlights, response.OtherFlights...)
	if err := mapstructure.WeakDecode(items, &offers); err != nil {
		return nil, fmt.Errorf("decode flight offers: %w", err)
	}

	flights := make([]Flight, 0, len(offers))
	for _, offer := range offers {
		if len(offer.Segments) == 0 {
			continue
		}
		first := offer.Segments[0]
		last := offer.Segments[len(offer.Segments)-1]

		flights = append(flights, Flight{
			Airline:       first.Airline,
			FlightNumber:  first.FlightNumber,
			Price:         FormatPrice(offer.Price, s.currency),
			DepartureTime: first.Departure.Time,
			ArrivalTime:   last.Arrival.Time,
			Duration:      FormatDuration(offer.TotalDuration),
			Route:         q.route(),
			Stops:         len(offer.Segments) - 1,
			Source:        serpAPISource,
		})

		if len(flights) == maxResults {
			break
		}
	}

	s.logger.Debug("flight search finished",
		zap.String("origin", q.Origin),
		zap.String("destination", q.Destination),
		zap.String("date", q.Date),
		zap.Int("count", len(flights)),
	)

	if len(flights) == 0 {
		return nil, ErrNoFlights
	}

	return flights, nil
}

func (s *SerpAPI) getJSON(ctx context.Context, endpoint string, q url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	req.Header.Set("User-Agent", s.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
	req.Header.Set("Accept", "application/json")
	req.URL.RawQuery = q.Encode()

	s.logger.Debug("make request", zap.String("url", redact(req.URL)))
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	return json.Unmarshal(data, target)
}

func redact(u *url.URL) string {
	c := *u
	q := c.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
	}
	c.RawQuery = q.Encode()
	return c.String()
}
