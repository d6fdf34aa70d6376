package yahoo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"StockPulse/internal/domain/models"
	xhttp "StockPulse/pkg/http"
)

// ErrNoResult means the chart API answered without usable data for the symbol.
// It matches models.ErrNoData.
var ErrNoResult = fmt.Errorf("yahoo: no data returned: %w", models.ErrNoData)

// Client reads the public Yahoo Finance chart API. It serves as the polling
// PriceSource and as the HistorySource for the analytics panel.
type Client struct {
	http     *xhttp.Client
	baseURL  string
	rng      string
	interval string
}

// Option configures Client.
type Option func(*Client)

// WithIntraday sets the range and bar interval used for the latest price.
func WithIntraday(rng, interval string) Option {
	return func(c *Client) {
		if rng != "" {
			c.rng = rng
		}
		if interval != "" {
			c.interval = interval
		}
	}
}

func New(httpClient *xhttp.Client, baseURL string, opts ...Option) *Client {
	c := &Client{
		http:     httpClient,
		baseURL:  strings.TrimRight(baseURL, "/"),
		rng:      "1d",
		interval: "1m",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return "yahoo" }

type chartMeta struct {
	Currency             string   `json:"currency"`
	Symbol               string   `json:"symbol"`
	RegularMarketPrice   *float64 `json:"regularMarketPrice"`
	ChartPreviousClose   *float64 `json:"chartPreviousClose"`
	PreviousClose        *float64 `json:"previousClose"`
	RegularMarketDayHigh *float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  *float64 `json:"regularMarketDayLow"`
	FiftyTwoWeekHigh     *float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow      *float64 `json:"fiftyTwoWeekLow"`
	RegularMarketVolume  *int64   `json:"regularMarketVolume"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) chart(ctx context.Context, symbol, interval, rng string) (*chartResult, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, url.PathEscape(symbol))
	q := map[string][]string{"interval": {interval}, "range": {rng}}

	var resp chartResponse
	if err := c.http.GetJSON(ctx, u, q, &resp); err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, ErrNoResult
		}
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if e := resp.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, ErrNoResult
		}
		return nil, fmt.Errorf("yahoo api error: %s", e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, ErrNoResult
	}
	return &resp.Chart.Result[0], nil
}

// bars pairs timestamps with non-null, finite closes. Null closes (halted
// minutes, holidays) are dropped.
func (r *chartResult) bars() []models.Bar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	closes := r.Indicators.Quote[0].Close
	out := make([]models.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		v := *closes[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, models.Bar{Time: time.Unix(ts, 0).UTC(), Close: v})
	}
	return out
}

// Latest returns the most recent intraday close. An unknown symbol or an empty
// chart is Empty; transport and API errors are Failed.
func (c *Client) Latest(ctx context.Context, symbol string) models.FetchResult {
	res, err := c.chart(ctx, symbol, c.interval, c.rng)
	if errors.Is(err, ErrNoResult) {
		return models.PriceEmpty()
	}
	if err != nil {
		return models.PriceFailed(err)
	}
	bars := res.bars()
	if len(bars) == 0 {
		return models.PriceEmpty()
	}
	return models.PriceOK(bars[len(bars)-1].Close)
}

// Quote returns the chart metadata for symbol, plus the market cap when the
// quote endpoint reports one.
func (c *Client) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	res, err := c.chart(ctx, symbol, "1d", "1d")
	if err != nil {
		return models.Quote{}, err
	}
	m := res.Meta
	q := models.Quote{
		Symbol:        symbol,
		Currency:      m.Currency,
		PreviousClose: m.ChartPreviousClose,
		DayHigh:       m.RegularMarketDayHigh,
		DayLow:        m.RegularMarketDayLow,
		High52w:       m.FiftyTwoWeekHigh,
		Low52w:        m.FiftyTwoWeekLow,
		Volume:        m.RegularMarketVolume,
	}
	if m.PreviousClose != nil {
		q.PreviousClose = m.PreviousClose
	}
	switch {
	case m.RegularMarketPrice != nil:
		q.CurrentPrice = *m.RegularMarketPrice
	default:
		bars := res.bars()
		if len(bars) == 0 {
			return models.Quote{}, ErrNoResult
		}
		q.CurrentPrice = bars[len(bars)-1].Close
	}
	q.MarketCap = c.marketCap(ctx, symbol)
	return q, nil
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol    string   `json:"symbol"`
			MarketCap *float64 `json:"marketCap"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

// marketCap is not part of the chart metadata. The quote endpoint is often
// rate limited, so any failure leaves it unknown rather than failing Quote.
func (c *Client) marketCap(ctx context.Context, symbol string) *int64 {
	var resp quoteResponse
	u := c.baseURL + "/v7/finance/quote"
	if err := c.http.GetJSON(ctx, u, map[string][]string{"symbols": {symbol}}, &resp); err != nil {
		return nil
	}
	for _, r := range resp.QuoteResponse.Result {
		if !strings.EqualFold(r.Symbol, symbol) || r.MarketCap == nil {
			continue
		}
		v := *r.MarketCap
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return nil
		}
		mc := int64(v)
		return &mc
	}
	return nil
}

// DailyBars returns daily closes over rng (e.g. "1y"), oldest first.
func (c *Client) DailyBars(ctx context.Context, symbol, rng string) ([]models.Bar, error) {
	res, err := c.chart(ctx, symbol, "1d", rng)
	if err != nil {
		return nil, err
	}
	return res.bars(), nil
}
