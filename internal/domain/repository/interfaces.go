package repository

import (
	"context"

	"StockPulse/internal/domain/models"
)

// PriceSource supplies the most recent price for a symbol.
type PriceSource interface {
	Name() string
	Latest(ctx context.Context, symbol string) models.FetchResult
}

// HistorySource supplies quote metrics and daily closes for the analytics panel.
type HistorySource interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
	DailyBars(ctx context.Context, symbol, rng string) ([]models.Bar, error)
}

// MarketStream is a push-based feed of trades, adapted into a PriceSource through a
// latest-price holder.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbol string) error
	Unsubscribe(ctx context.Context, symbol string) error
	Read(ctx context.Context) (<-chan *models.Trade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Presenter renders session frames and human-facing status messages.
type Presenter interface {
	Render(ctx context.Context, frame models.Frame)
	Status(ctx context.Context, msg string)
}

// Publisher sends price events to the message bus. Delivery is best-effort.
type Publisher interface {
	Publish(ctx context.Context, ev models.PriceEvent) error
	Close() error
}

// ObservationArchive is an optional write-only sink for tick results.
type ObservationArchive interface {
	Record(ctx context.Context, rec models.ArchiveRecord) error
	Close() error
}

type Metrics interface {
	RecordTick(symbol, outcome string)
	RecordPublished(topic, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordForecast(symbol string, forecast float64)
	RecordLatency(op string, seconds float64)
}

