package tasks

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/navihire/internal/ai"
	"github.com/spigell/navihire/internal/flights"
	"github.com/spigell/navihire/internal/utils"
	"github.com/spigell/navihire/internal/workflow"
	"go.uber.org/zap"
)

const (
	defaultOrigin      = "Delhi"
	defaultDestination = "Mumbai"
	defaultLeadTime    = 7 * 24 * time.Hour
	dateLayout         = "2006-01-02"

	// unknownPrice sorts unparseable fares last.
	unknownPrice    = 999999
	unknownDuration = "999h"
	maxTravelScore  = 100

	narrationFallback = "Unable to generate recommendations at this time."

	travelPrompt = `Generate travel recommendations for this request:

Request: {{REQUEST}}
Best Value Option: {{BEST_VALUE}}
Fastest Option: {{FASTEST}}
Cheapest Option: {{CHEAPEST}}
Travel policy: {{POLICY}}
Traveler preferences: {{PREFERENCES}}

Provide:
1. Which option is recommended and why
2. Cost-benefit analysis
3. Travel policy compliance notes
4. Alternative suggestions

Be concise and actionable.`
)

var priceDigits = regexp.MustCompile(`\d+`)

type Savings struct {
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	Percentage float64 `json:"percentage"`
}

type TravelOptimizationResult struct {
	OptimizedRequests int     `json:"optimized_requests"`
	TotalSavings      Savings `json:"total_savings"`
}

// TravelOptimization finds flight options for each travel request and picks
// the best value, fastest and cheapest fares.
type TravelOptimization struct {
	llm
	searcher flights.Searcher
	currency string
	now      func() time.Time
}

func NewTravelOptimization(generator ai.Generator, searcher flights.Searcher, currency string, logger *zap.Logger, maxLogLength int) *TravelOptimization {
	if currency == "" {
		currency = "INR"
	}
	return &TravelOptimization{
		llm:      newLLM(generator, logger, maxLogLength),
		searcher: searcher,
		currency: currency,
		now:      time.Now,
	}
}

func (n *TravelOptimization) Name() string { return string(workflow.RouteTravelOptimization) }

func (n *TravelOptimization) Process(ctx context.Context, state *workflow.State) error {
	if len(state.TravelRequests) == 0 {
		state.SetProgress(n.Name(), workflow.Progress{
			Status:  workflow.StatusNoRequests,
			Message: "No travel requests to process",
		})
		return nil
	}

	plans := make([]workflow.TravelPlan, 0, len(state.TravelRequests))
	for _, req := range state.TravelRequests {
		plans = append(plans, n.optimize(ctx, n.withDefaults(req), state))
	}

	state.TravelPlans = plans
	state.SetProgress(n.Name(), workflow.Progress{
		Status: workflow.StatusCompleted,
		Result: TravelOptimizationResult{
			OptimizedRequests: len(plans),
			TotalSavings:      n.savings(plans),
		},
	})
	return nil
}

func (n *TravelOptimization) withDefaults(req workflow.TravelRequest) workflow.TravelRequest {
	req.Origin = orDefault(req.Origin, defaultOrigin)
	req.Destination = orDefault(req.Destination, defaultDestination)
	req.Date = orDefault(req.Date, n.now().Add(defaultLeadTime).Format(dateLayout))
	return req
}

func (n *TravelOptimization) optimize(ctx context.Context, req workflow.TravelRequest, state *workflow.State) workflow.TravelPlan {
	options, err := n.searcher.Search(ctx, flights.Query{Origin: req.Origin, Destination: req.Destination, Date: req.Date})
	if err != nil {
		n.logger.Warn("travel request failed",
			zap.String("origin", req.Origin),
			zap.String("destination", req.Destination),
			zap.Error(err),
		)
		return workflow.TravelPlan{Request: req, OptimizationScore: 0, Error: err.Error()}
	}

	recs := &workflow.TravelRecommendations{
		BestValue: BestValue(options),
		Fastest:   Fastest(options),
		Cheapest:  Cheapest(options),
	}

	return workflow.TravelPlan{
		Request:           req,
		Options:           options,
		Recommendations:   recs,
		Analysis:          n.narrate(ctx, req, recs, state.TravelPolicy, state.UserPreferences),
		OptimizationScore: OptimizationScore(options),
	}
}

func (n *TravelOptimization) narrate(ctx context.Context, req workflow.TravelRequest, recs *workflow.TravelRecommendations, policy, preferences map[string]any) string {
	prompt := fill(travelPrompt, map[string]string{
		"REQUEST":     toJSON(req),
		"BEST_VALUE":  toJSON(recs.BestValue),
		"FASTEST":     toJSON(recs.Fastest),
		"CHEAPEST":    toJSON(recs.Cheapest),
		"POLICY":      toJSON(policy),
		"PREFERENCES": toJSON(preferences),
	})

	raw, err := n.generate(ctx, "travel recommendation", prompt)
	if err != nil || strings.TrimSpace(raw) == "" {
		n.logger.Warn("travel recommendation unavailable", zap.Error(err))
		return narrationFallback
	}
	return strings.TrimSpace(raw)
}

// savings totals, per trip, the gap between the most expensive option and
// the best value pick.
func (n *TravelOptimization) savings(plans []workflow.TravelPlan) Savings {
	var saved, spent float64
	for _, p := range plans {
		if p.Recommendations == nil || p.Recommendations.BestValue == nil || len(p.Options) == 0 {
			continue
		}
		highest := 0.0
		for _, f := range p.Options {
			highest = math.Max(highest, priceOrZero(f))
		}
		best := priceOrZero(*p.Recommendations.BestValue)
		if highest > best {
			saved += highest - best
		}
		spent += highest
	}

	s := Savings{Amount: saved, Currency: n.currency}
	if spent > 0 {
		s.Percentage = utils.Round1(saved / spent * 100)
	}
	return s
}

// ParsePrice extracts the first number from a fare such as "₹12,345".
// Unparseable fares map to a large sentinel so they never win "cheapest".
func ParsePrice(price string) float64 {
	cleaned := strings.ReplaceAll(strings.ReplaceAll(price, "₹", ""), ",", "")
	digits := priceDigits.FindString(cleaned)
	if digits == "" {
		return unknownPrice
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return unknownPrice
	}
	return v
}

func priceOr(f flights.Flight, missing string) float64 {
	if f.Price == "" {
		return ParsePrice(missing)
	}
	return ParsePrice(f.Price)
}

func priceOrZero(f flights.Flight) float64 {
	return priceOr(f, "0")
}

// BestValue scores each fare as 100 - price/100 and returns the highest;
// the first flight wins ties.
func BestValue(options []flights.Flight) *flights.Flight {
	if len(options) == 0 {
		return nil
	}
	best := 0
	bestScore := 100 - priceOrZero(options[0])/100
	for i := 1; i < len(options); i++ {
		score := 100 - priceOrZero(options[i])/100
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	f := options[best]
	return &f
}

// Fastest picks the flight with the shortest duration text. This compares
// string length, not parsed durations.
func Fastest(options []flights.Flight) *flights.Flight {
	if len(options) == 0 {
		return nil
	}
	durationLen := func(f flights.Flight) int {
		if f.Duration == "" {
			return len(unknownDuration)
		}
		return len(f.Duration)
	}
	best := 0
	for i := 1; i < len(options); i++ {
		if durationLen(options[i]) < durationLen(options[best]) {
			best = i
		}
	}
	f := options[best]
	return &f
}

// Cheapest picks the lowest parsed fare; the first flight wins ties.
func Cheapest(options []flights.Flight) *flights.Flight {
	if len(options) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(options); i++ {
		if priceOr(options[i], "999999") < priceOr(options[best], "999999") {
			best = i
		}
	}
	f := options[best]
	return &f
}

// OptimizationScore rewards more options and a wider price spread, capped at 100.
func OptimizationScore(options []flights.Flight) float64 {
	if len(options) == 0 {
		return 0
	}
	lowest, highest := math.Inf(1), math.Inf(-1)
	for _, f := range options {
		p := priceOrZero(f)
		lowest = math.Min(lowest, p)
		highest = math.Max(highest, p)
	}
	score := math.Min(float64(len(options))*10+(highest-lowest)/1000, maxTravelScore)
	return utils.Round1(score)
}
