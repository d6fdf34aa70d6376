package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"StockPulse/internal/domain/models"
	applogger "StockPulse/pkg/logger"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by writes before Connect or after Close.
var ErrNotConnected = errors.New("finnhub not connected")

// Client implements repository.MarketStream backed by the Finnhub trade WebSocket.
type Client struct {
	apiKey         string
	websocketURL   string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         *applogger.Logger

	mu        sync.Mutex // guards conn writes and the fields below
	conn      *websocket.Conn
	connected bool
	symbols   map[string]struct{}
}

// New creates a new Finnhub MarketStream.
func New(apiKey, websocketURL string, reconnectDelay, pingInterval time.Duration, logger *applogger.Logger) *Client {
	if logger == nil {
		logger = applogger.Nop()
	}
	if pingInterval <= 0 {
		pingInterval = 20 * time.Second
	}
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		logger:         logger,
		symbols:        make(map[string]struct{}),
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.websocketURL)
	if err != nil {
		return fmt.Errorf("finnhub url: %w", err)
	}
	q := u.Query()
	q.Set("token", c.apiKey)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("finnhub connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.logger.Info("finnhub connected")
	return nil
}

type control struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// Subscribe adds symbol to the trade feed. The subscription survives Reconnect;
// while disconnected the symbol is still kept and sent by the next Reconnect.
func (c *Client) Subscribe(ctx context.Context, symbol string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.symbols[symbol] = struct{}{}
	if err := c.writeLocked(control{Type: "subscribe", Symbol: symbol}); err != nil {
		return fmt.Errorf("subscribe %s: %w", symbol, err)
	}
	c.logger.Info("finnhub subscribed", applogger.String("symbol", symbol))
	return nil
}

// Unsubscribe removes symbol from the trade feed. While disconnected it only
// drops the symbol from the set restored by Reconnect.
func (c *Client) Unsubscribe(ctx context.Context, symbol string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.symbols, symbol)
	if c.conn == nil || !c.connected {
		return nil
	}
	if err := c.writeLocked(control{Type: "unsubscribe", Symbol: symbol}); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", symbol, err)
	}
	return nil
}

func (c *Client) writeLocked(v interface{}) error {
	if c.conn == nil || !c.connected {
		return ErrNotConnected
	}
	return c.conn.WriteJSON(v)
}

type fhTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type fhMessage struct {
	Type string    `json:"type"`
	Data []fhTrade `json:"data"`
}

// Read streams trades until the connection fails or ctx is done. Both channels
// are closed when reading stops; at most one error is sent.
func (c *Client) Read(ctx context.Context) (<-chan *models.Trade, <-chan error) {
	trades := make(chan *models.Trade, 256)
	errs := make(chan error, 1)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				if c.conn != nil {
					_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				}
				c.mu.Unlock()
			}
		}
	}()

	go func() {
		defer close(trades)
		defer close(errs)
		defer close(done)
		if conn == nil {
			errs <- ErrNotConnected
			return
		}
		for {
			if ctx.Err() != nil {
				return
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					errs <- fmt.Errorf("finnhub read: %w", err)
				}
				return
			}
			var m fhMessage
			if err := json.Unmarshal(b, &m); err != nil || m.Type != "trade" {
				// pings and status frames
				continue
			}
			for _, d := range m.Data {
				trade := &models.Trade{Symbol: d.S, Price: d.P, Volume: d.V, Timestamp: d.T / 1000}
				select {
				case trades <- trade:
				case <-ctx.Done():
					return
				default:
					// buffer full: only the newest price matters downstream,
					// so drop the oldest queued trade to make room
					select {
					case <-trades:
					default:
					}
					select {
					case trades <- trade:
					default:
					}
				}
			}
		}
	}()

	return trades, errs
}

// Reconnect closes, waits reconnectDelay and reconnects, restoring subscriptions.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()

	t := time.NewTimer(c.reconnectDelay)
	select {
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	case <-t.C:
	}

	if err := c.Connect(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for s := range c.symbols {
		if err := c.writeLocked(control{Type: "subscribe", Symbol: s}); err != nil {
			return fmt.Errorf("resubscribe %s: %w", s, err)
		}
	}
	return nil
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
