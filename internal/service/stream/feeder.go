package stream

import (
	"context"
	"strings"
	"sync"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	applogger "StockPulse/pkg/logger"
)

// Feeder pumps trades from a MarketStream into a Latest holder and follows the
// dashboard's current symbol. It is itself a PriceSource.
type Feeder struct {
	stream drepo.MarketStream
	latest *Latest
	logger *applogger.Logger
	retry  time.Duration

	mu     sync.Mutex
	symbol string

	subMu      sync.Mutex // serializes stream (un)subscribe calls
	subscribed string
}

func NewFeeder(stream drepo.MarketStream, latest *Latest, retry time.Duration, logger *applogger.Logger) *Feeder {
	if logger == nil {
		logger = applogger.Nop()
	}
	if retry <= 0 {
		retry = 5 * time.Second
	}
	return &Feeder{stream: stream, latest: latest, logger: logger, retry: retry}
}

func (f *Feeder) Name() string { return f.latest.Name() }

func (f *Feeder) Latest(ctx context.Context, symbol string) models.FetchResult {
	return f.latest.Latest(ctx, symbol)
}

// Watch switches the stream subscription to symbol. When the stream is not
// connected the symbol is remembered and subscribed once it is back. The last
// price of the previous symbol is dropped so a later switch back cannot reuse it.
func (f *Feeder) Watch(ctx context.Context, symbol string) error {
	f.mu.Lock()
	prev := f.symbol
	f.symbol = symbol
	f.mu.Unlock()

	if prev != "" && !strings.EqualFold(prev, symbol) {
		f.latest.Forget(prev)
	}
	if !f.stream.IsConnected() {
		return nil
	}
	return f.resync(ctx)
}

func (f *Feeder) watched() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.symbol
}

// resync makes the stream subscription match the watched symbol.
func (f *Feeder) resync(ctx context.Context) error {
	f.subMu.Lock()
	defer f.subMu.Unlock()

	want := f.watched()
	if want == f.subscribed {
		return nil
	}
	if f.subscribed != "" {
		if err := f.stream.Unsubscribe(ctx, f.subscribed); err != nil {
			f.logger.Warn("stream unsubscribe failed", applogger.String("symbol", f.subscribed), applogger.Error(err))
		}
		f.subscribed = ""
	}
	if want == "" {
		return nil
	}
	if err := f.stream.Subscribe(ctx, want); err != nil {
		return err
	}
	f.subscribed = want
	return nil
}

// Run connects and pumps trades until ctx is done, reconnecting on read errors.
func (f *Feeder) Run(ctx context.Context) error {
	if err := f.connect(ctx); err != nil {
		return err
	}
	for {
		trades, errs := f.stream.Read(ctx)
		f.drain(ctx, trades, errs)
		if ctx.Err() != nil {
			return f.stream.Close()
		}
		for {
			err := f.stream.Reconnect(ctx)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return nil
			}
			f.logger.Warn("stream reconnect failed", applogger.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(f.retry):
			}
		}
		if err := f.resync(ctx); err != nil {
			f.logger.Warn("stream resubscribe failed", applogger.String("symbol", f.watched()), applogger.Error(err))
		}
		f.logger.Info("stream reconnected", applogger.String("symbol", f.watched()))
	}
}

func (f *Feeder) connect(ctx context.Context) error {
	if err := f.stream.Connect(ctx); err != nil {
		return err
	}
	return f.resync(ctx)
}

func (f *Feeder) drain(ctx context.Context, trades <-chan *models.Trade, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case tr, ok := <-trades:
			if !ok {
				return
			}
			// trades still in flight for the previous symbol
			if tr == nil || !strings.EqualFold(tr.Symbol, f.watched()) {
				continue
			}
			var at time.Time
			if tr.Timestamp > 0 {
				at = time.Unix(tr.Timestamp, 0)
			}
			f.latest.Set(tr.Symbol, tr.Price, at)
		case err, ok := <-errs:
			if ok && err != nil {
				f.logger.Warn("stream read failed", applogger.Error(err))
				return
			}
			errs = nil
		}
	}
}
