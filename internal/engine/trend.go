package engine

import "StockPulse/internal/domain/models"

// WarmupObservations is the series length from which a regression forecast is made.
// Below it the forecast is the latest price.
const WarmupObservations = 5

// Result is the engine output for one state of the series.
type Result struct {
	Forecast float64
	Trend    models.Trend
	Warm     bool
}

// Evaluate computes the forecast for index n+1 and the trend of the last two prices.
// It has no state; the same prices always give the same result.
func Evaluate(prices []float64) Result {
	return Result{
		Forecast: Forecast(prices),
		Trend:    Classify(prices),
		Warm:     len(prices) >= WarmupObservations,
	}
}

// Forecast predicts the next price. For fewer than WarmupObservations prices it
// passes the last price through; otherwise it extrapolates an OLS line fitted over
// (1, p1) .. (n, pn) to x = n+1. An empty series forecasts 0.
func Forecast(prices []float64) float64 {
	n := len(prices)
	if n == 0 {
		return 0
	}
	if n < WarmupObservations {
		return prices[n-1]
	}
	line, ok := FitIndexed(prices)
	if !ok {
		return prices[n-1]
	}
	return line.At(float64(n + 1))
}

// Classify compares the last two prices. Fewer than two prices are Stable.
func Classify(prices []float64) models.Trend {
	n := len(prices)
	if n < 2 {
		return models.TrendStable
	}
	switch last, prev := prices[n-1], prices[n-2]; {
	case last > prev:
		return models.TrendUp
	case last < prev:
		return models.TrendDown
	default:
		return models.TrendStable
	}
}
