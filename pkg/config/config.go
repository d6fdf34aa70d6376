package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Price sources understood by the market section.
const (
	SourceYahoo   = "yahoo"
	SourceFinnhub = "finnhub"
	SourceKafka   = "kafka"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"required"`
	Log         LogConfig        `yaml:"log"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Market      MarketConfig     `yaml:"market"`
	Yahoo       YahooConfig      `yaml:"yahoo"`
	Finnhub     FinnhubConfig    `yaml:"finnhub"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Redis       RedisConfig      `yaml:"redis"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Analytics   AnalyticsConfig  `yaml:"analytics"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	Output string `yaml:"output" default:"stdout"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	DisableCORS     bool          `yaml:"disable_cors"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" default:"/metrics"`
}

// MarketConfig describes what is polled and how often.
type MarketConfig struct {
	Symbol string `yaml:"symbol" default:"TCS" validate:"required"`
	// SymbolSuffix is appended to symbols that carry no exchange suffix (".NS" for NSE).
	SymbolSuffix    string `yaml:"symbol_suffix"`
	IntervalSeconds int    `yaml:"interval_seconds" default:"30" validate:"gte=1"`
	Source          string `yaml:"source" default:"yahoo" validate:"oneof=yahoo finnhub kafka"`
}

type YahooConfig struct {
	BaseURL   string        `yaml:"base_url" default:"https://query1.finance.yahoo.com"`
	Timeout   time.Duration `yaml:"timeout" default:"10s"`
	Range     string        `yaml:"range" default:"1d"`
	Interval  string        `yaml:"interval" default:"1m"`
	UserAgent string        `yaml:"user_agent" default:"Mozilla/5.0"`
}

type FinnhubConfig struct {
	APIKey         string        `yaml:"api_key"`
	WebSocketURL   string        `yaml:"websocket_url" default:"wss://ws.finnhub.io"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
	PingInterval   time.Duration `yaml:"ping_interval" default:"20s"`
}

type KafkaConfig struct {
	Brokers      []string            `yaml:"brokers"`
	Topic        string              `yaml:"topic" default:"stock_prices"`
	RequiredAcks int                 `yaml:"required_acks" default:"1"`
	Compression  string              `yaml:"compression" default:"snappy" validate:"oneof=gzip snappy lz4 zstd"`
	Producer     KafkaProducerConfig `yaml:"producer"`
	Consumer     KafkaConsumerConfig `yaml:"consumer"`
}

type KafkaProducerConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	Linger       time.Duration `yaml:"linger" default:"10ms"`
	BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
	BatchSize    int           `yaml:"batch_size" default:"1"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	Async        bool          `yaml:"async"`
}

type KafkaConsumerConfig struct {
	GroupID  string `yaml:"group_id" default:"stockpulse-dashboard"`
	MinBytes int    `yaml:"min_bytes" default:"1"`
	MaxBytes int    `yaml:"max_bytes" default:"1048576"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ClickHouseConfig configures the optional observation archive.
type ClickHouseConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Host         string        `yaml:"host" default:"localhost"`
	Port         int           `yaml:"port" default:"9000"`
	Database     string        `yaml:"database" default:"stockpulse"`
	User         string        `yaml:"user" default:"default"`
	Password     string        `yaml:"password"`
	UseHTTP      bool          `yaml:"use_http"`
	DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
}

type AnalyticsConfig struct {
	HistoryRange string        `yaml:"history_range" default:"1y"`
	CacheTTL     time.Duration `yaml:"cache_ttl" default:"5m"`
	RateCapacity float64       `yaml:"rate_capacity" default:"5"`
	RateRefill   float64       `yaml:"rate_refill" default:"1"`
}

// Interval returns the polling interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Market.IntervalSeconds) * time.Second
}

var validate = validator.New()

// Load reads and parses a YAML configuration file, filling unset fields with defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes into a validated Config.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func decode(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

// envOverrides are read from STOCKPULSE_* variables.
type envOverrides struct {
	Symbol        string   `envconfig:"SYMBOL"`
	Interval      int      `envconfig:"INTERVAL"`
	Source        string   `envconfig:"SOURCE"`
	KafkaBrokers  []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic    string   `envconfig:"KAFKA_TOPIC"`
	FinnhubAPIKey string   `envconfig:"FINNHUB_API_KEY"`
	RedisAddr     string   `envconfig:"REDIS_ADDR"`
	LogLevel      string   `envconfig:"LOG_LEVEL"`
}

// LoadWithEnv loads config from YAML, then applies .env and environment overrides
// before validating.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := decode(b)
	if err != nil {
		return nil, err
	}

	// .env is optional
	_ = godotenv.Load()

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	var o envOverrides
	if err := envconfig.Process("stockpulse", &o); err != nil {
		return fmt.Errorf("env overrides: %w", err)
	}

	if o.Symbol != "" {
		c.Market.Symbol = o.Symbol
	}
	if o.Interval > 0 {
		c.Market.IntervalSeconds = o.Interval
	}
	if o.Source != "" {
		c.Market.Source = o.Source
	}
	if len(o.KafkaBrokers) > 0 {
		c.Kafka.Brokers = o.KafkaBrokers
	}
	if o.KafkaTopic != "" {
		c.Kafka.Topic = o.KafkaTopic
	}
	if o.FinnhubAPIKey != "" {
		c.Finnhub.APIKey = o.FinnhubAPIKey
	}
	if o.RedisAddr != "" {
		c.Redis.Addr = o.RedisAddr
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	switch c.Market.Source {
	case SourceFinnhub:
		if c.Finnhub.APIKey == "" {
			return fmt.Errorf("finnhub.api_key is required for source %q", SourceFinnhub)
		}
	case SourceKafka:
		if err := c.RequireKafka(); err != nil {
			return err
		}
	}
	return nil
}

// RequireKafka checks the settings needed by anything that talks to Kafka.
func (c *Config) RequireKafka() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty")
	}
	if c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required")
	}
	return nil
}
