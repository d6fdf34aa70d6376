package series

import "StockPulse/internal/domain/models"

// Buffer is the append-only price history of one session. Entries are never
// removed or mutated; insertion order is the time axis.
type Buffer struct {
	prices []float64
}

// New creates an empty buffer.
func New() *Buffer {
	return &Buffer{prices: make([]float64, 0, 64)}
}

// Append records price as the next observation, with index Len()+1.
// The value is not validated.
func (b *Buffer) Append(price float64) models.Observation {
	b.prices = append(b.prices, price)
	return models.Observation{Index: len(b.prices), Price: price}
}

// Len returns the number of observations.
func (b *Buffer) Len() int { return len(b.prices) }

// Arrays returns copies of the index and price sequences, parallel-indexed.
func (b *Buffer) Arrays() ([]int, []float64) {
	idx := make([]int, len(b.prices))
	for i := range idx {
		idx[i] = i + 1
	}
	prices := make([]float64, len(b.prices))
	copy(prices, b.prices)
	return idx, prices
}

// Prices returns a read-only view of the price history. Callers must not modify it.
func (b *Buffer) Prices() []float64 { return b.prices[:len(b.prices):len(b.prices)] }

// Last returns the most recent observation, or false when empty.
func (b *Buffer) Last() (models.Observation, bool) {
	if len(b.prices) == 0 {
		return models.Observation{}, false
	}
	n := len(b.prices)
	return models.Observation{Index: n, Price: b.prices[n-1]}, true
}
