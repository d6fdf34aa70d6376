package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.RecordTick("TCS.NS", "ok")
	r.RecordTick("TCS.NS", "ok")
	r.RecordTick("TCS.NS", "no_data")
	r.RecordPublished("stock_prices", "AAPL")
	r.RecordError("fetch")
	r.RecordLastPrice("TCS.NS", 3510.25)
	r.RecordForecast("TCS.NS", 3512)
	r.RecordLatency("tick", 0.02)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.ticks.WithLabelValues("TCS.NS", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ticks.WithLabelValues("TCS.NS", "no_data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.published.WithLabelValues("stock_prices", "AAPL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errors.WithLabelValues("fetch")))
	assert.Equal(t, 3510.25, testutil.ToFloat64(r.lastPrice.WithLabelValues("TCS.NS")))
	assert.Equal(t, 3512.0, testutil.ToFloat64(r.forecast.WithLabelValues("TCS.NS")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.latency))
}
