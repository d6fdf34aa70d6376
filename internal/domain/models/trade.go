package models

import "time"

// Trade is a single print from a streaming feed.
type Trade struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp int64 // unix seconds
}

// ArchiveRecord is one row of the observation archive.
type ArchiveRecord struct {
	SessionID string
	Symbol    string
	Index     int
	Price     float64
	Forecast  float64
	Trend     Trend
	At        time.Time
}
