package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"StockPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestStartsEmpty(t *testing.T) {
	l := NewLatest("finnhub")
	assert.Equal(t, "finnhub", l.Name())
	assert.Equal(t, models.FetchEmpty, l.Latest(context.Background(), "AAPL").Kind)
}

func TestLatestKeepsNewest(t *testing.T) {
	l := NewLatest("kafka")
	t0 := time.Unix(1000, 0)
	l.Set("aapl", 10, t0)
	l.Set("AAPL", 9, t0.Add(-time.Second))
	r := l.Latest(context.Background(), "AAPL")
	assert.Equal(t, models.PriceOK(10), r)

	l.Set("AAPL", 11, t0.Add(time.Second))
	assert.Equal(t, 11.0, l.Latest(context.Background(), "aapl").Price)
}

func TestLatestIgnoresBadPrices(t *testing.T) {
	l := NewLatest("x")
	l.Set("A", 0, time.Time{})
	l.Set("A", -1, time.Time{})
	assert.Equal(t, models.FetchEmpty, l.Latest(context.Background(), "A").Kind)
}

type fakeStream struct {
	mu         sync.Mutex
	connected  bool
	subscribed []string
	unsubbed   []string
	trades     chan *models.Trade
	errs       chan error
	reconnects int
	// gate, when set, holds Reconnect disconnected until it is closed
	gate chan struct{}
}

func newFakeStream() *fakeStream {
	return &fakeStream{trades: make(chan *models.Trade, 8), errs: make(chan error, 1)}
}

func (s *fakeStream) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *fakeStream) Subscribe(_ context.Context, sym string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed = append(s.subscribed, sym)
	return nil
}

func (s *fakeStream) Unsubscribe(_ context.Context, sym string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubbed = append(s.unsubbed, sym)
	return nil
}

func (s *fakeStream) Read(context.Context) (<-chan *models.Trade, <-chan error) {
	return s.trades, s.errs
}

func (s *fakeStream) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	s.reconnects++
	gate := s.gate
	if gate != nil {
		s.connected = false
	}
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	return nil
}

func (s *fakeStream) Close() error { return nil }

func (s *fakeStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeStream) snapshot() ([]string, []string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.subscribed...), append([]string(nil), s.unsubbed...), s.reconnects
}

func TestFeederPumpsAndFollowsSymbol(t *testing.T) {
	fs := newFakeStream()
	f := NewFeeder(fs, NewLatest("finnhub"), time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, f.Watch(ctx, "AAPL"))
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	fs.trades <- &models.Trade{Symbol: "AAPL", Price: 190.5, Timestamp: 1}
	require.Eventually(t, func() bool {
		return f.Latest(ctx, "AAPL").Kind == models.FetchOK
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 190.5, f.Latest(ctx, "AAPL").Price)

	require.NoError(t, f.Watch(ctx, "MSFT"))
	subs, unsubs, _ := fs.snapshot()
	assert.Equal(t, []string{"AAPL", "MSFT"}, subs)
	assert.Equal(t, []string{"AAPL"}, unsubs)

	fs.errs <- errors.New("connection reset")
	require.Eventually(t, func() bool {
		_, _, n := fs.snapshot()
		return n == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("feeder did not stop")
	}
}

func TestLatestForget(t *testing.T) {
	l := NewLatest("x")
	l.Set("AAPL", 10, time.Time{})
	l.Forget("aapl")
	assert.Equal(t, models.FetchEmpty, l.Latest(context.Background(), "AAPL").Kind)
}

func TestFeederWatchDuringReconnect(t *testing.T) {
	fs := newFakeStream()
	fs.gate = make(chan struct{})
	f := NewFeeder(fs, NewLatest("finnhub"), time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, f.Watch(ctx, "AAPL"))
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()
	require.Eventually(t, fs.IsConnected, time.Second, 5*time.Millisecond)

	fs.errs <- errors.New("connection reset")
	require.Eventually(t, func() bool {
		_, _, n := fs.snapshot()
		return n == 1 && !fs.IsConnected()
	}, time.Second, 5*time.Millisecond)

	// the stream is down: the switch is only remembered
	require.NoError(t, f.Watch(ctx, "MSFT"))
	subs, unsubs, _ := fs.snapshot()
	assert.Equal(t, []string{"AAPL"}, subs)
	assert.Empty(t, unsubs)

	close(fs.gate)
	require.Eventually(t, func() bool {
		subs, _, _ := fs.snapshot()
		return len(subs) == 2
	}, time.Second, 5*time.Millisecond)
	subs, unsubs, _ = fs.snapshot()
	assert.Equal(t, []string{"AAPL", "MSFT"}, subs)
	assert.Equal(t, []string{"AAPL"}, unsubs)

	fs.trades <- &models.Trade{Symbol: "AAPL", Price: 190, Timestamp: 2}
	fs.trades <- &models.Trade{Symbol: "MSFT", Price: 410.5, Timestamp: 2}
	require.Eventually(t, func() bool {
		return f.Latest(ctx, "MSFT").Kind == models.FetchOK
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 410.5, f.Latest(ctx, "MSFT").Price)
	assert.Equal(t, models.FetchEmpty, f.Latest(ctx, "AAPL").Kind)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("feeder did not stop")
	}
}

func TestFeederSwitchBackDoesNotReuseOldPrice(t *testing.T) {
	fs := newFakeStream()
	f := NewFeeder(fs, NewLatest("finnhub"), time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, f.Watch(ctx, "AAPL"))
	go func() { _ = f.Run(ctx) }()

	fs.trades <- &models.Trade{Symbol: "AAPL", Price: 190, Timestamp: 1}
	require.Eventually(t, func() bool {
		return f.Latest(ctx, "AAPL").Kind == models.FetchOK
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, f.Watch(ctx, "MSFT"))
	require.NoError(t, f.Watch(ctx, "AAPL"))
	assert.Equal(t, models.FetchEmpty, f.Latest(ctx, "AAPL").Kind)
}
