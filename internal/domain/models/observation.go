package models

import "time"

// Trend is the short-term direction of the two most recent prices.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Observation is one price seen by a session. Index is 1-based and contiguous.
type Observation struct {
	Index int     `json:"index"`
	Price float64 `json:"price"`
}

// TickOutcome is what one successful tick produced.
type TickOutcome struct {
	Observation Observation `json:"observation"`
	Forecast    float64     `json:"forecast"`
	Trend       Trend       `json:"trend"`
}

// Frame is an immutable copy of a session handed to the presentation layer.
type Frame struct {
	SessionID string    `json:"session_id"`
	Symbol    string    `json:"symbol"`
	Indices   []int     `json:"indices"`
	Prices    []float64 `json:"prices"`
	Forecasts []float64 `json:"forecasts"`
	Trends    []Trend   `json:"trends"`
	Trend     Trend     `json:"trend"`
	Forecast  float64   `json:"forecast"`
	Price     float64   `json:"price"`
	At        time.Time `json:"at"`
}

// Len returns the number of observations in the frame.
func (f Frame) Len() int { return len(f.Prices) }

// PriceEvent is the record published by the producer: {"symbol": ..., "price": ...}.
type PriceEvent struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}
