package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"StockPulse/internal/domain/models"
	domrepo "StockPulse/internal/domain/repository"
	"StockPulse/internal/service/stream"
	pkgkafka "StockPulse/pkg/kafka"
)

// KafkaPricesHandler consumes PriceEvents from the producer topic into a
// latest-price holder, which the dashboard then polls like any other source.
type KafkaPricesHandler struct {
	topic   string
	latest  *stream.Latest
	metrics domrepo.Metrics
}

func NewKafkaPricesHandler(topic string, latest *stream.Latest, metrics domrepo.Metrics) *KafkaPricesHandler {
	return &KafkaPricesHandler{topic: topic, latest: latest, metrics: metrics}
}

func (h *KafkaPricesHandler) Topic() string { return h.topic }

// message schema: {"symbol": "AAPL", "price": 187.25}
func (h *KafkaPricesHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.PriceEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return &pkgkafka.HookError{Code: "ERR_DECODE", Err: err}
	}
	if strings.TrimSpace(ev.Symbol) == "" {
		h.metrics.RecordError("consumer_invalid")
		return &pkgkafka.HookError{Code: "ERR_INVALID", Err: errors.New("price event without symbol")}
	}
	at, _ := pkgkafka.MessageTime(ctx)
	h.latest.Set(ev.Symbol, ev.Price, at)
	return nil
}
