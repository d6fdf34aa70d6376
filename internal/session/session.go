package session

import (
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/engine"
	"StockPulse/internal/series"

	"github.com/google/uuid"
)

// Session is the state of one monitoring run for one symbol. It is owned by the
// polling loop and is not safe for concurrent use.
type Session struct {
	id        string
	symbol    string
	startedAt time.Time
	buf       *series.Buffer
	forecasts []float64
	trends    []models.Trend
}

// New starts an empty session.
func New(symbol string, now time.Time) *Session {
	return &Session{
		id:        uuid.NewString(),
		symbol:    symbol,
		startedAt: now,
		buf:       series.New(),
	}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Symbol() string       { return s.symbol }
func (s *Session) StartedAt() time.Time { return s.startedAt }
func (s *Session) Len() int             { return s.buf.Len() }

// Record appends one price and computes that tick's forecast and trend.
// Every observation produces exactly one forecast and one trend.
func (s *Session) Record(price float64) models.TickOutcome {
	obs := s.buf.Append(price)
	res := engine.Evaluate(s.buf.Prices())
	s.forecasts = append(s.forecasts, res.Forecast)
	s.trends = append(s.trends, res.Trend)
	return models.TickOutcome{Observation: obs, Forecast: res.Forecast, Trend: res.Trend}
}

// Current re-evaluates the engine on the current history without appending.
func (s *Session) Current() engine.Result {
	return engine.Evaluate(s.buf.Prices())
}

// Frame returns a deep copy of the session for rendering.
func (s *Session) Frame(at time.Time) models.Frame {
	idx, prices := s.buf.Arrays()
	f := models.Frame{
		SessionID: s.id,
		Symbol:    s.symbol,
		Indices:   idx,
		Prices:    prices,
		Forecasts: append([]float64(nil), s.forecasts...),
		Trends:    append([]models.Trend(nil), s.trends...),
		Trend:     models.TrendStable,
		At:        at,
	}
	if n := len(prices); n > 0 {
		f.Price = prices[n-1]
		f.Forecast = s.forecasts[n-1]
		f.Trend = s.trends[n-1]
	}
	return f
}
