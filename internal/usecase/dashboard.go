package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	"StockPulse/internal/session"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/util"
)

// SymbolWatcher is implemented by push-based sources that must follow the
// dashboard's current symbol.
type SymbolWatcher interface {
	Watch(ctx context.Context, symbol string) error
}

// Dashboard runs one polling tick at a time against the current session. The
// fetch happens outside the session lock, so readers never wait on the network.
type Dashboard struct {
	source    drepo.PriceSource
	presenter drepo.Presenter
	archive   drepo.ObservationArchive
	metrics   drepo.Metrics
	logger    *applogger.Logger
	suffix    string
	now       func() time.Time

	tickMu sync.Mutex // one tick at a time

	mu   sync.Mutex // guards sess
	sess *session.Session
}

// NewDashboard starts an empty session for symbol. archive may be nil.
func NewDashboard(
	source drepo.PriceSource,
	presenter drepo.Presenter,
	archive drepo.ObservationArchive,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	symbol, suffix string,
) *Dashboard {
	d := &Dashboard{
		source:    source,
		presenter: presenter,
		archive:   archive,
		metrics:   metrics,
		logger:    logger,
		suffix:    suffix,
		now:       time.Now,
	}
	d.sess = session.New(util.NormalizeSymbol(symbol, suffix), d.now())
	return d
}

// Start points a push-based source at the initial symbol and renders the empty
// session so clients have something to draw before the first tick.
func (d *Dashboard) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.source.(SymbolWatcher); ok {
		if err := w.Watch(ctx, d.sess.Symbol()); err != nil {
			return fmt.Errorf("watch %s: %w", d.sess.Symbol(), err)
		}
	}
	d.presenter.Render(ctx, d.sess.Frame(d.now()))
	d.presenter.Status(ctx, fmt.Sprintf("Waiting for first price of %s", d.sess.Symbol()))
	return nil
}

// Tick fetches one price. On NoData it reports a status and leaves the session
// untouched, returning an error wrapping models.ErrNoData. Otherwise the price is
// recorded, the new frame rendered, and the tick archived when an archive is
// configured. A result fetched for a session replaced meanwhile is dropped.
func (d *Dashboard) Tick(ctx context.Context) error {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()

	start := d.now()
	d.mu.Lock()
	sess := d.sess
	d.mu.Unlock()
	symbol := sess.Symbol()

	res := d.source.Latest(ctx, symbol)
	if res.Kind == models.FetchOK && (math.IsNaN(res.Price) || math.IsInf(res.Price, 0)) {
		res = models.PriceFailed(fmt.Errorf("non-finite price %v", res.Price))
	}

	d.mu.Lock()
	if d.sess != sess {
		d.mu.Unlock()
		d.logger.Debug("session changed during fetch, result dropped",
			applogger.String("symbol", symbol),
			applogger.String("kind", res.Kind.String()),
		)
		return nil
	}

	if err := res.NoData(); err != nil {
		d.presenter.Status(ctx, noDataMessage(symbol, res))
		d.mu.Unlock()
		d.metrics.RecordTick(symbol, "no_data")
		d.logger.Warn("no data",
			applogger.String("symbol", symbol),
			applogger.String("source", d.source.Name()),
			applogger.String("kind", res.Kind.String()),
			applogger.Error(err),
		)
		return fmt.Errorf("tick %s: %w", symbol, err)
	}

	out := sess.Record(res.Price)
	d.presenter.Render(ctx, sess.Frame(d.now()))
	d.presenter.Status(ctx, "")
	d.mu.Unlock()

	d.metrics.RecordTick(symbol, "ok")
	d.metrics.RecordLastPrice(symbol, res.Price)
	d.metrics.RecordForecast(symbol, out.Forecast)

	if d.archive != nil {
		rec := models.ArchiveRecord{
			SessionID: sess.ID(),
			Symbol:    symbol,
			Index:     out.Observation.Index,
			Price:     out.Observation.Price,
			Forecast:  out.Forecast,
			Trend:     out.Trend,
			At:        start,
		}
		if err := d.archive.Record(ctx, rec); err != nil {
			d.metrics.RecordError("archive")
			d.logger.Warn("archive failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
	}

	d.metrics.RecordLatency("tick", d.now().Sub(start).Seconds())
	d.logger.Debug("tick",
		applogger.String("symbol", symbol),
		applogger.Int("index", out.Observation.Index),
		applogger.Float64("price", out.Observation.Price),
		applogger.Float64("forecast", out.Forecast),
		applogger.String("trend", string(out.Trend)),
	)
	return nil
}

func noDataMessage(symbol string, res models.FetchResult) string {
	if res.Kind == models.FetchFailed && res.Err != nil {
		return fmt.Sprintf("Error fetching %s: %v", symbol, res.Err)
	}
	return fmt.Sprintf("No data available for %s", symbol)
}

// ChangeSymbol normalizes symbol and, when it differs from the current one,
// discards the session and starts a new one. It reports whether it changed.
func (d *Dashboard) ChangeSymbol(ctx context.Context, symbol string) (bool, error) {
	next := util.NormalizeSymbol(symbol, d.suffix)
	if next == "" {
		return false, fmt.Errorf("empty symbol")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if next == d.sess.Symbol() {
		return false, nil
	}
	if w, ok := d.source.(SymbolWatcher); ok {
		if err := w.Watch(ctx, next); err != nil {
			return false, fmt.Errorf("watch %s: %w", next, err)
		}
	}

	prev := d.sess
	d.sess = session.New(next, d.now())
	d.logger.Info("symbol changed",
		applogger.String("from", prev.Symbol()),
		applogger.String("to", next),
		applogger.Int("discarded", prev.Len()),
		applogger.String("session", d.sess.ID()),
	)
	d.presenter.Render(ctx, d.sess.Frame(d.now()))
	d.presenter.Status(ctx, fmt.Sprintf("Switched to %s", next))
	return true, nil
}

// Symbol is the symbol of the current session.
func (d *Dashboard) Symbol() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sess.Symbol()
}

// Snapshot returns a copy of the current session.
func (d *Dashboard) Snapshot() models.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sess.Frame(d.now())
}

// Normalize applies the configured exchange suffix to symbol.
func (d *Dashboard) Normalize(symbol string) string {
	return util.NormalizeSymbol(symbol, d.suffix)
}
