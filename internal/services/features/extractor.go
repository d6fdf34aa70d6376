package features

import (
	"math"

	"StockPulse/internal/domain/models"

	"github.com/shopspring/decimal"
)

// Windows are the moving-average lengths shown on the analytics chart.
var Windows = [3]int{20, 50, 200}

// MovingAverage returns the trailing simple moving average of closes over
// window for every position. A position is nil until the window is full.
func MovingAverage(closes []float64, window int) []*float64 {
	out := make([]*float64, len(closes))
	if window <= 0 {
		return out
	}
	var sum float64
	for i, c := range closes {
		sum += c
		if i >= window {
			sum -= closes[i-window]
		}
		if i+1 >= window {
			v := Round2(sum / float64(window))
			out[i] = &v
		}
	}
	return out
}

// MovingAverageRows builds the MA20/MA50/MA200 chart rows for daily bars.
func MovingAverageRows(bars []models.Bar) []models.MovingAverageRow {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	ma20 := MovingAverage(closes, Windows[0])
	ma50 := MovingAverage(closes, Windows[1])
	ma200 := MovingAverage(closes, Windows[2])

	rows := make([]models.MovingAverageRow, len(bars))
	for i, b := range bars {
		rows[i] = models.MovingAverageRow{
			Date:  b.Time,
			Close: Round2(b.Close),
			MA20:  ma20[i],
			MA50:  ma50[i],
			MA200: ma200[i],
		}
	}
	return rows
}

// ChangePercent is the move from previous close to current in percent, rounded
// to two places. It is nil when there is no positive previous close.
func ChangePercent(current float64, previousClose *float64) *float64 {
	if previousClose == nil || *previousClose <= 0 || math.IsNaN(current) {
		return nil
	}
	cur := decimal.NewFromFloat(current)
	prev := decimal.NewFromFloat(*previousClose)
	v := cur.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	return &v
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
