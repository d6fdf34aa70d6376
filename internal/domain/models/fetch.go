package models

import (
	"errors"
	"fmt"
)

// ErrNoData is the one error kind the polling core cares about: the data source
// returned nothing usable for this tick.
var ErrNoData = errors.New("no data")

// FetchKind classifies a data source result.
type FetchKind int

const (
	FetchOK FetchKind = iota
	FetchEmpty
	FetchFailed
)

func (k FetchKind) String() string {
	switch k {
	case FetchOK:
		return "ok"
	case FetchEmpty:
		return "empty"
	case FetchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchResult is returned by a price source instead of a bare error so callers
// must match on the outcome explicitly.
type FetchResult struct {
	Kind  FetchKind
	Price float64
	Err   error
}

func PriceOK(price float64) FetchResult { return FetchResult{Kind: FetchOK, Price: price} }

func PriceEmpty() FetchResult { return FetchResult{Kind: FetchEmpty} }

func PriceFailed(err error) FetchResult { return FetchResult{Kind: FetchFailed, Err: err} }

// NoData converts a non-OK result to an error wrapping ErrNoData. It returns nil for FetchOK.
func (r FetchResult) NoData() error {
	switch r.Kind {
	case FetchOK:
		return nil
	case FetchFailed:
		return fmt.Errorf("%w: %v", ErrNoData, r.Err)
	default:
		return ErrNoData
	}
}
