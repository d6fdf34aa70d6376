package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"StockPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	topic string
	key   string
	value interface{}
}

type fakeWriter struct {
	sent   []sentMessage
	err    error
	closed bool
}

func (w *fakeWriter) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	if w.err != nil {
		return w.err
	}
	w.sent = append(w.sent, sentMessage{topic: topic, key: string(key), value: value})
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherKeysBySymbol(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, "stock_prices")

	require.NoError(t, p.Publish(context.Background(), models.PriceEvent{Symbol: "AAPL", Price: 190.25}))
	require.Len(t, w.sent, 1)
	assert.Equal(t, "stock_prices", w.sent[0].topic)
	assert.Equal(t, "AAPL", w.sent[0].key)
	assert.Equal(t, models.PriceEvent{Symbol: "AAPL", Price: 190.25}, w.sent[0].value)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisherErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewKafkaPublisher(w, "stock_prices")
	assert.Error(t, p.Publish(context.Background(), models.PriceEvent{Symbol: "AAPL", Price: 1}))
	assert.Error(t, p.Publish(context.Background(), models.PriceEvent{Price: 1}))
}

type execCall struct {
	query    string
	args     []interface{}
	deadline bool
}

type fakeExecer struct {
	calls []execCall
	err   error
}

func (e *fakeExecer) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	_, ok := ctx.Deadline()
	e.calls = append(e.calls, execCall{query: query, args: args, deadline: ok})
	return nil, e.err
}

func TestClickHouseArchiveRecord(t *testing.T) {
	db := &fakeExecer{}
	a := NewClickHouseArchive(db, "stockpulse", time.Second)
	at := time.Date(2026, 3, 2, 9, 15, 0, 0, time.FixedZone("IST", 19800))

	require.NoError(t, a.Record(context.Background(), models.ArchiveRecord{
		SessionID: "s1",
		Symbol:    "TCS.NS",
		Index:     3,
		Price:     3500.5,
		Forecast:  3501,
		Trend:     models.TrendUp,
		At:        at,
	}))
	require.Len(t, db.calls, 1)
	call := db.calls[0]
	assert.True(t, strings.HasPrefix(call.query, "INSERT INTO stockpulse.observations"))
	assert.True(t, call.deadline)
	assert.Equal(t, []interface{}{"s1", "TCS.NS", uint32(3), 3500.5, 3501.0, "up", at.UTC()}, call.args)
	assert.NoError(t, a.Close())
}

func TestClickHouseArchiveWrapsError(t *testing.T) {
	boom := errors.New("boom")
	a := NewClickHouseArchive(&fakeExecer{err: boom}, "stockpulse", 0)
	err := a.Record(context.Background(), models.ArchiveRecord{Symbol: "X"})
	assert.ErrorIs(t, err, boom)
}

func TestSchemaStatements(t *testing.T) {
	stmts := SchemaStatements("stockpulse")
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS stockpulse", stmts[0])
	assert.Contains(t, stmts[1], "stockpulse.observations")
	assert.Contains(t, stmts[1], "MergeTree")
}
