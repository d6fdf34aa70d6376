package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"StockPulse/internal/domain/repository"
	"StockPulse/internal/handler/api"
	"StockPulse/internal/handler/board"
	internalrepo "StockPulse/internal/repository"
	"StockPulse/internal/scheduler"
	"StockPulse/internal/service/cache"
	"StockPulse/internal/service/finnhub"
	"StockPulse/internal/service/ratelimit"
	"StockPulse/internal/service/stream"
	"StockPulse/internal/service/yahoo"
	"StockPulse/internal/usecase"
	pkgch "StockPulse/pkg/clickhouse"
	"StockPulse/pkg/config"
	xhttp "StockPulse/pkg/http"
	pkgkafka "StockPulse/pkg/kafka"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/metrics"
	"StockPulse/pkg/server"
	"StockPulse/pkg/util"
)

// PriceFeed is the dashboard's price source together with whatever has to run
// in the background to keep it fed.
type PriceFeed struct {
	Source   repository.PriceSource
	Runner   server.Runner
	Consumer *pkgkafka.Consumer
	Handler  pkgkafka.MessageHandler
}

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(
		xhttp.WithTimeout(cfg.Yahoo.Timeout),
		xhttp.WithHeader("User-Agent", cfg.Yahoo.UserAgent),
		xhttp.WithHeader("Accept", "application/json"),
	)
}

func ProvideYahooClient(cfg *config.Config, hc *xhttp.Client) *yahoo.Client {
	return yahoo.New(hc, cfg.Yahoo.BaseURL, yahoo.WithIntraday(cfg.Yahoo.Range, cfg.Yahoo.Interval))
}

func ProvideHistorySource(y *yahoo.Client) repository.HistorySource {
	return y
}

func ProvideYahooPriceSource(y *yahoo.Client) repository.PriceSource {
	return y
}

// ProvidePriceFeed picks the dashboard's price source from market.source.
func ProvidePriceFeed(cfg *config.Config, y *yahoo.Client, m repository.Metrics, logger *applogger.Logger) (*PriceFeed, error) {
	switch cfg.Market.Source {
	case config.SourceYahoo:
		return &PriceFeed{Source: y}, nil

	case config.SourceFinnhub:
		feeder := ProvideFinnhubFeeder(cfg, logger)
		return &PriceFeed{Source: feeder, Runner: feeder}, nil

	case config.SourceKafka:
		latest := stream.NewLatest(config.SourceKafka)
		consumer, err := ProvideKafkaConsumer(cfg, logger)
		if err != nil {
			return nil, err
		}
		// prices older than a few ticks are not "latest" any more
		consumer.WithConsumerHook(pkgkafka.StaleMessageHook(5*cfg.Interval(), time.Now))
		return &PriceFeed{
			Source:   latest,
			Consumer: consumer,
			Handler:  usecase.NewKafkaPricesHandler(cfg.Kafka.Topic, latest, m),
		}, nil

	default:
		return nil, fmt.Errorf("unknown market source %q", cfg.Market.Source)
	}
}

// ProvideFinnhubFeeder adapts the Finnhub trade stream into a PriceSource.
func ProvideFinnhubFeeder(cfg *config.Config, logger *applogger.Logger) *stream.Feeder {
	ws := finnhub.New(
		cfg.Finnhub.APIKey,
		cfg.Finnhub.WebSocketURL,
		cfg.Finnhub.ReconnectDelay,
		cfg.Finnhub.PingInterval,
		logger,
	)
	return stream.NewFeeder(ws, stream.NewLatest(config.SourceFinnhub), cfg.Finnhub.ReconnectDelay, logger)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config, logger *applogger.Logger) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerStartLatest(true),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config, logger *applogger.Logger) (*pkgkafka.Producer, error) {
	if err := cfg.RequireKafka(); err != nil {
		return nil, err
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatch(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithProducerLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher creates Kafka publisher repository.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideClickHouseClient connects and creates the archive schema. It returns a
// nil client when the archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.InitSchema(ctx, internalrepo.SchemaStatements(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideArchive returns nil when ClickHouse is disabled.
func ProvideArchive(ch *pkgch.Client) repository.ObservationArchive {
	if ch == nil {
		return nil
	}
	return internalrepo.NewClickHouseArchive(ch.DB(), ch.Database(), ch.WriteTimeout())
}

// ProvideAnalyticsCache uses Redis when enabled, otherwise an in-process cache.
func ProvideAnalyticsCache(cfg *config.Config) (cache.BytesCache, error) {
	if !cfg.Redis.Enabled {
		return cache.NewTTLCache(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   "stockpulse:",
	})
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

func ProvideHub(logger *applogger.Logger) *board.Hub {
	return board.NewHub(logger)
}

func ProvideBoard(hub *board.Hub) *board.Board {
	return board.NewBoard(hub)
}

func ProvidePresenter(b *board.Board) repository.Presenter {
	return b
}

func ProvideDashboard(
	cfg *config.Config,
	feed *PriceFeed,
	presenter repository.Presenter,
	archive repository.ObservationArchive,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.Dashboard {
	return usecase.NewDashboard(feed.Source, presenter, archive, m, logger, cfg.Market.Symbol, cfg.Market.SymbolSuffix)
}

func ProvideDashboardScheduler(cfg *config.Config, dash *usecase.Dashboard, logger *applogger.Logger) (*scheduler.Scheduler, error) {
	return scheduler.New("dashboard", cfg.Interval(), dash.Tick, logger)
}

func ProvideAnalytics(
	cfg *config.Config,
	history repository.HistorySource,
	c cache.BytesCache,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.Analytics {
	return usecase.NewAnalytics(history, c, cfg.Analytics.CacheTTL, cfg.Analytics.HistoryRange, m, logger)
}

func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

func ProvideDashboardHandler(
	cfg *config.Config,
	logger *applogger.Logger,
	dash *usecase.Dashboard,
	sched *scheduler.Scheduler,
	b *board.Board,
	hub *board.Hub,
	analytics *usecase.Analytics,
	limiter *ratelimit.Limiter,
) xhttp.Handler {
	rate := api.RateLimit{Capacity: cfg.Analytics.RateCapacity, Refill: cfg.Analytics.RateRefill}
	return api.NewDashboardEchoHandler(logger, dash, sched, b, hub, analytics, limiter, rate, cfg.Market.Source)
}

// ProvideHTTPServer builds the Echo server. The producer passes a nil handler
// and gets only health and metrics routes.
func ProvideHTTPServer(cfg *config.Config, handler xhttp.Handler, logger *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithCORS(!cfg.Server.DisableCORS),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path))
	}
	return xhttp.NewServer(handler, logger, opts...)
}

// ProvideDashboardApp creates the dashboard application server.
func ProvideDashboardApp(
	cfg *config.Config,
	logger *applogger.Logger,
	sched *scheduler.Scheduler,
	srv *xhttp.Server,
	feed *PriceFeed,
	dash *usecase.Dashboard,
	hub *board.Hub,
	ch *pkgch.Client,
	c cache.BytesCache,
) *server.App {
	opts := []server.Option{
		server.WithHTTPServer(srv),
		server.WithRunner(feed.Runner),
		server.WithStarter(dash.Start),
		server.WithCloser("hub", closerFunc(func() error { hub.Close(); return nil })),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	}
	if feed.Consumer != nil {
		opts = append(opts, server.WithConsumer(feed.Consumer, feed.Handler))
	}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch))
	}
	if cl, ok := c.(io.Closer); ok {
		opts = append(opts, server.WithCloser("redis", cl))
	}
	logger.Info("dashboard configured",
		applogger.String("env", cfg.Environment),
		applogger.String("source", cfg.Market.Source),
		applogger.String("symbol", dash.Symbol()),
		applogger.Bool("archive", ch != nil),
		applogger.Bool("redis", cfg.Redis.Enabled),
	)
	return server.New("dashboard", logger, sched, opts...)
}

// ProvidePriceProducer creates the producer use case for the configured symbol.
func ProvidePriceProducer(
	cfg *config.Config,
	source repository.PriceSource,
	pub repository.Publisher,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.PriceProducer {
	symbol := util.NormalizeSymbol(cfg.Market.Symbol, cfg.Market.SymbolSuffix)
	return usecase.NewPriceProducer(source, pub, m, logger, symbol, cfg.Kafka.Topic)
}

func ProvideProducerScheduler(cfg *config.Config, p *usecase.PriceProducer, logger *applogger.Logger) (*scheduler.Scheduler, error) {
	return scheduler.New("producer", cfg.Interval(), p.Tick, logger)
}

// ProvideMetricsOnlyHandler gives the producer's server no application routes.
func ProvideMetricsOnlyHandler() xhttp.Handler {
	return nil
}

// ProvideProducerApp creates the producer application. The HTTP server is only
// started when metrics are enabled.
func ProvideProducerApp(
	cfg *config.Config,
	logger *applogger.Logger,
	sched *scheduler.Scheduler,
	srv *xhttp.Server,
	p *usecase.PriceProducer,
) *server.App {
	opts := []server.Option{
		server.WithCloser("producer", p),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, server.WithHTTPServer(srv))
	}
	logger.Info("producer configured",
		applogger.String("env", cfg.Environment),
		applogger.Strings("brokers", cfg.Kafka.Brokers),
		applogger.String("topic", cfg.Kafka.Topic),
	)
	return server.New("producer", logger, sched, opts...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
