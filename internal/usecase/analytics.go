package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	"StockPulse/internal/service/cache"
	"StockPulse/internal/services/features"
	applogger "StockPulse/pkg/logger"
)

// Analytics builds the quote metrics and moving-average panel for a symbol.
// Results are cached for ttl; cache failures only cost a refetch.
type Analytics struct {
	history drepo.HistorySource
	cache   cache.BytesCache
	ttl     time.Duration
	rng     string
	metrics drepo.Metrics
	logger  *applogger.Logger
	now     func() time.Time
}

func NewAnalytics(history drepo.HistorySource, c cache.BytesCache, ttl time.Duration, rng string, metrics drepo.Metrics, logger *applogger.Logger) *Analytics {
	if rng == "" {
		rng = "1y"
	}
	return &Analytics{history: history, cache: c, ttl: ttl, rng: rng, metrics: metrics, logger: logger, now: time.Now}
}

func cacheKey(symbol, rng string) string {
	return "stockpulse:analytics:" + rng + ":" + symbol
}

// PriceAnalytics returns analytics for symbol. Errors matching models.ErrNoData
// mean the symbol has no data upstream.
func (a *Analytics) PriceAnalytics(ctx context.Context, symbol string) (models.PriceAnalytics, error) {
	key := cacheKey(symbol, a.rng)
	if b, ok, err := a.cache.GetBytes(ctx, key); err != nil {
		a.metrics.RecordError("analytics_cache_get")
		a.logger.Warn("analytics cache get failed", applogger.String("key", key), applogger.Error(err))
	} else if ok {
		var out models.PriceAnalytics
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
	}

	start := a.now()
	q, err := a.history.Quote(ctx, symbol)
	if err != nil {
		a.metrics.RecordError("analytics_quote")
		return models.PriceAnalytics{}, fmt.Errorf("quote %s: %w", symbol, err)
	}
	bars, err := a.history.DailyBars(ctx, symbol, a.rng)
	if err != nil {
		a.metrics.RecordError("analytics_history")
		return models.PriceAnalytics{}, fmt.Errorf("history %s: %w", symbol, err)
	}

	q.CurrentPrice = features.Round2(q.CurrentPrice)
	out := models.PriceAnalytics{
		Quote:         q,
		ChangePercent: features.ChangePercent(q.CurrentPrice, q.PreviousClose),
		MovingAverage: features.MovingAverageRows(bars),
		GeneratedAt:   a.now().UTC(),
	}
	a.metrics.RecordLatency("analytics", a.now().Sub(start).Seconds())

	if b, err := json.Marshal(out); err == nil {
		if err := a.cache.SetBytes(ctx, key, b, a.ttl); err != nil {
			a.metrics.RecordError("analytics_cache_set")
			a.logger.Warn("analytics cache set failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	return out, nil
}
