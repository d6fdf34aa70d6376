package stream

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"StockPulse/internal/domain/models"
)

// Latest keeps the newest pushed price per symbol and serves it to the polling
// loop as a PriceSource. Until a symbol's first price arrives it reports Empty.
type Latest struct {
	name   string
	mu     sync.RWMutex
	prices map[string]quote
}

type quote struct {
	price float64
	at    time.Time
}

func NewLatest(name string) *Latest {
	return &Latest{name: name, prices: make(map[string]quote)}
}

func (l *Latest) Name() string { return l.name }

// Set records price for symbol. Non-finite or non-positive prices are ignored.
func (l *Latest) Set(symbol string, price float64, at time.Time) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return
	}
	key := strings.ToUpper(symbol)
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.prices[key]; ok && !at.IsZero() && at.Before(cur.at) {
		return
	}
	l.prices[key] = quote{price: price, at: at}
}

// Latest implements repository.PriceSource.
func (l *Latest) Latest(_ context.Context, symbol string) models.FetchResult {
	l.mu.RLock()
	q, ok := l.prices[strings.ToUpper(symbol)]
	l.mu.RUnlock()
	if !ok {
		return models.PriceEmpty()
	}
	return models.PriceOK(q.price)
}

// Forget drops the last price of symbol.
func (l *Latest) Forget(symbol string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.prices, strings.ToUpper(symbol))
}
