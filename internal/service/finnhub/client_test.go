package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFinnhub echoes a trade frame for every subscribe it receives.
func fakeFinnhub(t *testing.T, gotToken chan<- string) *httptest.Server {
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken <- r.URL.Query().Get("token")
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))
		for {
			var msg control
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type != "subscribe" {
				continue
			}
			_ = conn.WriteJSON(map[string]interface{}{
				"type": "trade",
				"data": []map[string]interface{}{
					{"s": msg.Symbol, "p": 187.25, "v": 10, "t": 1767225600123},
				},
			})
		}
	}))
}

func TestClientStreamsTrades(t *testing.T) {
	tokens := make(chan string, 1)
	srv := fakeFinnhub(t, tokens)
	defer srv.Close()

	c := New("secret", "ws"+strings.TrimPrefix(srv.URL, "http"), 10*time.Millisecond, time.Second, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.Connect(ctx))
	assert.Equal(t, "secret", <-tokens)
	assert.True(t, c.IsConnected())

	trades, errs := c.Read(ctx)
	require.NoError(t, c.Subscribe(ctx, "AAPL"))

	select {
	case tr := <-trades:
		require.NotNil(t, tr)
		assert.Equal(t, "AAPL", tr.Symbol)
		assert.Equal(t, 187.25, tr.Price)
		assert.Equal(t, int64(1767225600), tr.Timestamp)
	case err := <-errs:
		t.Fatalf("unexpected error: %v", err)
	case <-ctx.Done():
		t.Fatal("no trade received")
	}

	require.NoError(t, c.Close())
	assert.False(t, c.IsConnected())
}

func TestSubscribeBeforeConnect(t *testing.T) {
	c := New("k", "ws://127.0.0.1:1", 0, 0, nil)
	assert.ErrorIs(t, c.Subscribe(context.Background(), "AAPL"), ErrNotConnected)
	_, kept := c.symbols["AAPL"]
	assert.True(t, kept)
}

func TestSubscribeWhileDisconnectedIsSentOnReconnect(t *testing.T) {
	tokens := make(chan string, 2)
	srv := fakeFinnhub(t, tokens)
	defer srv.Close()

	c := New("k", "ws"+strings.TrimPrefix(srv.URL, "http"), time.Millisecond, time.Second, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.Connect(ctx))
	<-tokens
	require.NoError(t, c.Subscribe(ctx, "AAPL"))
	require.NoError(t, c.Close())

	require.NoError(t, c.Unsubscribe(ctx, "AAPL"))
	assert.ErrorIs(t, c.Subscribe(ctx, "MSFT"), ErrNotConnected)

	require.NoError(t, c.Reconnect(ctx))
	<-tokens
	trades, _ := c.Read(ctx)
	select {
	case tr := <-trades:
		require.NotNil(t, tr)
		assert.Equal(t, "MSFT", tr.Symbol)
	case <-ctx.Done():
		t.Fatal("no trade after reconnect")
	}
	_ = c.Close()
}

func TestReconnectRestoresSubscriptions(t *testing.T) {
	tokens := make(chan string, 2)
	srv := fakeFinnhub(t, tokens)
	defer srv.Close()

	c := New("k", "ws"+strings.TrimPrefix(srv.URL, "http"), time.Millisecond, time.Second, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.Connect(ctx))
	<-tokens
	require.NoError(t, c.Subscribe(ctx, "MSFT"))

	require.NoError(t, c.Reconnect(ctx))
	<-tokens
	trades, _ := c.Read(ctx)

	select {
	case tr := <-trades:
		require.NotNil(t, tr)
		assert.Equal(t, "MSFT", tr.Symbol)
	case <-ctx.Done():
		t.Fatal("no trade after reconnect")
	}
	_ = c.Close()
}

func TestReadKeepsNewestTradesWhenBufferFull(t *testing.T) {
	const sent = 300
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		data := make([]map[string]interface{}, 0, sent)
		for i := 1; i <= sent; i++ {
			data = append(data, map[string]interface{}{"s": "AAPL", "p": float64(i), "v": 1, "t": 1767225600000 + i})
		}
		_ = conn.WriteJSON(map[string]interface{}{"type": "trade", "data": data})
		var msg control
		for conn.ReadJSON(&msg) == nil {
		}
	}))
	defer srv.Close()

	c := New("k", "ws"+strings.TrimPrefix(srv.URL, "http"), 10*time.Millisecond, time.Second, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	trades, _ := c.Read(ctx)
	require.Eventually(t, func() bool { return len(trades) == cap(trades) }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	var last float64
	n := 0
	for n < cap(trades) {
		tr := <-trades
		last = tr.Price
		n++
	}
	assert.Equal(t, float64(sent), last, "newest trade is kept")
}
