package models

import "time"

// Quote holds the latest market metrics for a symbol. Pointer fields are nil
// when the upstream did not report them.
type Quote struct {
	Symbol        string   `json:"symbol"`
	Currency      string   `json:"currency,omitempty"`
	CurrentPrice  float64  `json:"current_price"`
	PreviousClose *float64 `json:"previous_close,omitempty"`
	DayHigh       *float64 `json:"day_high,omitempty"`
	DayLow        *float64 `json:"day_low,omitempty"`
	High52w       *float64 `json:"fifty_two_week_high,omitempty"`
	Low52w        *float64 `json:"fifty_two_week_low,omitempty"`
	Volume        *int64   `json:"volume,omitempty"`
	MarketCap     *int64   `json:"market_cap,omitempty"`
}

// Bar is one daily close.
type Bar struct {
	Time  time.Time `json:"time"`
	Close float64   `json:"close"`
}

// MovingAverageRow is one point of the moving-average chart. MA fields stay nil
// until the window is full.
type MovingAverageRow struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
	MA20  *float64  `json:"ma20"`
	MA50  *float64  `json:"ma50"`
	MA200 *float64  `json:"ma200"`
}

// PriceAnalytics is the analytics panel of the dashboard.
type PriceAnalytics struct {
	Quote         Quote              `json:"quote"`
	ChangePercent *float64           `json:"change_percent,omitempty"`
	MovingAverage []MovingAverageRow `json:"moving_average"`
	GeneratedAt   time.Time          `json:"generated_at"`
}
