package engine

import (
	"math/rand"
	"testing"

	"StockPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replay feeds prices one at a time, the way ticks do, and collects per-tick output.
func replay(prices []float64) ([]float64, []models.Trend) {
	forecasts := make([]float64, 0, len(prices))
	trends := make([]models.Trend, 0, len(prices))
	for n := 1; n <= len(prices); n++ {
		r := Evaluate(prices[:n])
		forecasts = append(forecasts, r.Forecast)
		trends = append(trends, r.Trend)
	}
	return forecasts, trends
}

func TestScenarios(t *testing.T) {
	tests := []struct {
		name          string
		prices        []float64
		wantForecasts []float64
		wantTrends    []models.Trend
	}{
		{
			name:          "single observation",
			prices:        []float64{100},
			wantForecasts: []float64{100},
			wantTrends:    []models.Trend{models.TrendStable},
		},
		{
			name:          "two observations rising",
			prices:        []float64{100, 102},
			wantForecasts: []float64{100, 102},
			wantTrends:    []models.Trend{models.TrendStable, models.TrendUp},
		},
		{
			name:          "flat series",
			prices:        []float64{10, 10, 10, 10, 10},
			wantForecasts: []float64{10, 10, 10, 10, 10},
			wantTrends: []models.Trend{
				models.TrendStable, models.TrendStable, models.TrendStable, models.TrendStable, models.TrendStable,
			},
		},
		{
			name:          "perfect line",
			prices:        []float64{1, 2, 3, 4, 5},
			wantForecasts: []float64{1, 2, 3, 4, 6},
			wantTrends: []models.Trend{
				models.TrendStable, models.TrendUp, models.TrendUp, models.TrendUp, models.TrendUp,
			},
		},
		{
			name:          "falling then flat",
			prices:        []float64{5, 4, 4},
			wantForecasts: []float64{5, 4, 4},
			wantTrends:    []models.Trend{models.TrendStable, models.TrendDown, models.TrendStable},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forecasts, trends := replay(tt.prices)
			assert.Equal(t, tt.wantForecasts, forecasts)
			assert.Equal(t, tt.wantTrends, trends)
		})
	}
}

func TestColdForecastIsLastPrice(t *testing.T) {
	prices := []float64{3.25, 99.5, 12, 7.75}
	for n := 1; n < WarmupObservations; n++ {
		r := Evaluate(prices[:n])
		assert.False(t, r.Warm)
		assert.Equal(t, prices[n-1], r.Forecast, "n=%d", n)
	}
}

// normalEquations is an independent OLS over x = 1..n predicting x = n+1.
func normalEquations(prices []float64) float64 {
	n := float64(len(prices))
	var sx, sy, sxx, sxy float64
	for i, p := range prices {
		x := float64(i + 1)
		sx += x
		sy += p
		sxx += x * x
		sxy += x * p
	}
	slope := (n*sxy - sx*sy) / (n*sxx - sx*sx)
	intercept := (sy - slope*sx) / n
	return intercept + slope*(n+1)
}

func TestWarmForecastMatchesOLS(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := WarmupObservations + rng.Intn(60)
		prices := make([]float64, n)
		p := 100.0
		for i := range prices {
			p += rng.NormFloat64()
			prices[i] = p
		}
		r := Evaluate(prices)
		require.True(t, r.Warm)
		assert.InDelta(t, normalEquations(prices), r.Forecast, 1e-6, "n=%d", n)
	}
}

func TestZeroBasedFitGivesSameForecast(t *testing.T) {
	// Fitting x = 0..n-1 and predicting x = n is the same line shifted by one.
	prices := []float64{101.2, 100.8, 102.4, 103.1, 102.9, 104.6}
	xs := make([]float64, len(prices))
	for i := range xs {
		xs[i] = float64(i)
	}
	line, ok := Fit(xs, prices)
	require.True(t, ok)
	assert.InDelta(t, line.At(float64(len(prices))), Forecast(prices), 1e-9)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	prices := []float64{10, 12, 11, 15, 14, 13, 17}
	snapshot := append([]float64(nil), prices...)

	first := Evaluate(prices)
	second := Evaluate(prices)
	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, prices)
}

func TestClassifyProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	prices := make([]float64, 0, 200)
	for i := 0; i < 200; i++ {
		prices = append(prices, float64(rng.Intn(5)))
		got := Classify(prices)
		if len(prices) < 2 {
			assert.Equal(t, models.TrendStable, got)
			continue
		}
		last, prev := prices[len(prices)-1], prices[len(prices)-2]
		switch {
		case last > prev:
			assert.Equal(t, models.TrendUp, got)
		case last < prev:
			assert.Equal(t, models.TrendDown, got)
		default:
			assert.Equal(t, models.TrendStable, got)
		}
	}
}

func TestEmptySeries(t *testing.T) {
	r := Evaluate(nil)
	assert.Equal(t, 0.0, r.Forecast)
	assert.Equal(t, models.TrendStable, r.Trend)
	assert.False(t, r.Warm)
}

func TestFitRejectsDegenerateInput(t *testing.T) {
	_, ok := Fit([]float64{1, 1, 1}, []float64{1, 2, 3})
	assert.False(t, ok)
	_, ok = Fit([]float64{1, 2}, []float64{1})
	assert.False(t, ok)
	_, ok = Fit(nil, nil)
	assert.False(t, ok)
}

func TestLineIntercept(t *testing.T) {
	line, ok := FitIndexed([]float64{3, 5, 7})
	require.True(t, ok)
	assert.InDelta(t, 2.0, line.Slope, 1e-12)
	assert.InDelta(t, 1.0, line.Intercept(), 1e-12)
}
