package usecase

import (
	"context"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	applogger "StockPulse/pkg/logger"
)

// PriceProducer fetches the latest price each tick and publishes it as a
// PriceEvent. It keeps no series.
type PriceProducer struct {
	source  drepo.PriceSource
	pub     drepo.Publisher
	metrics drepo.Metrics
	logger  *applogger.Logger
	symbol  string
	topic   string
}

func NewPriceProducer(source drepo.PriceSource, pub drepo.Publisher, metrics drepo.Metrics, logger *applogger.Logger, symbol, topic string) *PriceProducer {
	return &PriceProducer{source: source, pub: pub, metrics: metrics, logger: logger, symbol: symbol, topic: topic}
}

// Tick publishes one event. NoData and publish failures are logged, counted and
// returned; nothing is retried here.
func (p *PriceProducer) Tick(ctx context.Context) error {
	start := time.Now()
	res := p.source.Latest(ctx, p.symbol)
	if err := res.NoData(); err != nil {
		p.metrics.RecordTick(p.symbol, "no_data")
		p.logger.Warn("no data", applogger.String("symbol", p.symbol), applogger.Error(err))
		return fmt.Errorf("produce %s: %w", p.symbol, err)
	}
	p.metrics.RecordTick(p.symbol, "ok")
	p.metrics.RecordLastPrice(p.symbol, res.Price)

	ev := models.PriceEvent{Symbol: p.symbol, Price: res.Price}
	if err := p.pub.Publish(ctx, ev); err != nil {
		p.metrics.RecordError("publish")
		p.logger.Error("publish failed",
			applogger.String("topic", p.topic),
			applogger.String("symbol", p.symbol),
			applogger.Error(err),
		)
		return fmt.Errorf("publish %s: %w", p.symbol, err)
	}

	p.metrics.RecordPublished(p.topic, p.symbol)
	p.metrics.RecordLatency("produce", time.Since(start).Seconds())
	p.logger.Info("sent",
		applogger.String("symbol", ev.Symbol),
		applogger.Float64("price", ev.Price),
	)
	return nil
}

// Close closes the publisher.
func (p *PriceProducer) Close() error {
	return p.pub.Close()
}

// Symbol is the symbol this producer publishes.
func (p *PriceProducer) Symbol() string { return p.symbol }
