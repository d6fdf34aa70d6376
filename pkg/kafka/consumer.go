package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	applogger "StockPulse/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Consumer reads each registered topic with its own group reader. Messages of a
// topic are handled one at a time in partition order; a message that still fails
// after RetryMax retries is logged and committed so it cannot block the topic.
type Consumer struct {
	cfg      *ConsumerConfig
	logger   *applogger.Logger
	handlers map[string]MessageHandler
	readers  map[string]*kafka.Reader
	hook     ConsumerHook

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "default",
		StartLatest: true,
		RetryMax:    2,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  time.Second,
		MinBytes:    1,
		MaxBytes:    1e6,
		MaxWait:     500 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = applogger.Nop()
	}

	initConsumerMetricsOnce()

	return &Consumer{
		cfg:      cfg,
		logger:   cfg.Logger,
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]*kafka.Reader),
		hook:     NoopHook{},
	}, nil
}

// RegisterHandler registers a message handler for its topic. A second handler
// for the same topic is ignored.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.logger.Warn("kafka handler already registered", applogger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// WithConsumerHook sets a hook implementation for lifecycle events.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// Start opens a reader per registered topic and begins consuming.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return errors.New("no handlers registered")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	start := kafka.FirstOffset
	if c.cfg.StartLatest {
		start = kafka.LastOffset
	}

	for topic, handler := range c.handlers {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     c.cfg.Brokers,
			Topic:       topic,
			GroupID:     c.cfg.GroupID,
			MinBytes:    c.cfg.MinBytes,
			MaxBytes:    c.cfg.MaxBytes,
			MaxWait:     c.cfg.MaxWait,
			StartOffset: start,
		})
		c.readers[topic] = reader

		c.wg.Add(1)
		go c.consume(ctx, reader, handler)
		c.logger.Info("kafka consumer started",
			applogger.String("topic", topic),
			applogger.String("group", c.cfg.GroupID),
		)
	}
	return nil
}

// Stop stops consuming and closes readers, waiting at most until ctx is done.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error

	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		case <-done:
		}

		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				c.logger.Warn("kafka reader close failed", applogger.String("topic", topic), applogger.Error(err))
			}
		}
		c.logger.Info("kafka consumer stopped")
	})

	return stopErr
}

func (c *Consumer) consume(ctx context.Context, reader *kafka.Reader, handler MessageHandler) {
	defer c.wg.Done()
	topic := handler.Topic()

	for {
		km, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("kafka fetch failed", applogger.String("topic", topic), applogger.Error(err))
			if !sleepCtx(ctx, c.cfg.BackoffMax) {
				return
			}
			continue
		}

		start := time.Now()
		if err := c.process(ctx, handler, km); err != nil {
			consumerFailedTotal.WithLabelValues(topic).Inc()
			c.logger.Error("kafka message dropped",
				applogger.String("topic", topic),
				applogger.Int("partition", km.Partition),
				applogger.Error(err),
			)
		}
		consumerHandleLatency.WithLabelValues(topic).Observe(time.Since(start).Seconds())

		cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := reader.CommitMessages(cctx, km); err != nil {
			c.logger.Warn("kafka commit failed", applogger.String("topic", topic), applogger.Error(err))
		}
		cancel()
	}
}

// process runs the hooks and the handler for one message, retrying with
// backoff. Hook rejections and HookError results are not retried.
func (c *Consumer) process(ctx context.Context, handler MessageHandler, km kafka.Message) (err error) {
	topic := handler.Topic()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	for attempt := 1; ; attempt++ {
		hctx, hmsg, data, berr := c.hook.BeforeHandle(ctx, topic, km, km.Value)
		if berr != nil {
			c.hook.OnError(ctx, topic, km, km.Value, berr)
			return berr
		}

		hctx = withMessageTime(hctx, hmsg.Time)
		err = handler.Handle(hctx, data)
		c.hook.AfterHandle(hctx, topic, hmsg, data, err)
		if err == nil {
			return nil
		}
		c.hook.OnError(hctx, topic, hmsg, data, err)
		var permanent *HookError
		if errors.As(err, &permanent) {
			return err
		}
		if attempt > c.cfg.RetryMax {
			return fmt.Errorf("after %d attempts: %w", attempt, err)
		}
		if !sleepCtx(ctx, backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)) {
			return ctx.Err()
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := min * time.Duration(1<<uint(attempt-1))
	if exp > max || exp <= 0 {
		exp = max
	}
	// jitter up to 50%
	jitter := time.Duration(rand.Int63n(int64(exp)/2 + 1))
	return exp - jitter
}

var (
	consumerHandleLatency *prometheus.HistogramVec
	consumerFailedTotal   *prometheus.CounterVec
	consumerOnce          sync.Once
)

func initConsumerMetricsOnce() {
	consumerOnce.Do(func() {
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "stockpulse_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
		consumerFailedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "stockpulse_kafka_consumer_failed_total", Help: "Messages dropped after retries"},
			[]string{"topic"},
		)
	})
}
