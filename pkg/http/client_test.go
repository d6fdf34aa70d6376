package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "stockpulse-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "1d", r.URL.Query().Get("range"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"price": 12.5}`))
	}))
	defer srv.Close()

	c := NewClient(WithHeader("User-Agent", "stockpulse-test"))
	var out struct {
		Price float64 `json:"price"`
	}
	err := c.GetJSON(context.Background(), srv.URL, map[string][]string{"range": {"1d"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, 12.5, out.Price)
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such symbol", http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewClient().GetJSON(context.Background(), srv.URL, nil, &struct{}{})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, se.Body, "no such symbol")
}

func TestClientDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	err := NewClient().GetJSON(context.Background(), srv.URL, nil, &struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode json")
}

func TestClientHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewClient().GetJSON(ctx, "http://127.0.0.1:1", nil, nil)
	require.Error(t, err)
}
